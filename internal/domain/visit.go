package domain

// VisitsTable is the relational table holding site visits.
const VisitsTable = "visitantes_site"

// Visit is the canonical record of one page-view event reported by the
// content site's tracker.
type Visit struct {
	ID               string  `json:"id"`
	OriginURL        string  `json:"url_origem"`
	IPAddress        string  `json:"ip_visitante"`
	UserAgent        string  `json:"user_agent"`
	PageVisited      string  `json:"pagina_visitada"`
	DwellTimeSeconds int64   `json:"tempo_permanencia"`
	TrafficSource    string  `json:"origem_trafego"`
	Campaign         *string `json:"campanha"`
	Medium           *string `json:"meio"`
	Term             *string `json:"termo"`
	DeviceType       string  `json:"dispositivo"`
	Browser          string  `json:"navegador"`
	Location         string  `json:"localizacao"`
	Converted        bool    `json:"converteu"`
	ActionTaken      string  `json:"acao_realizada"`
	VisitTimestamp   string  `json:"timestamp_visita"`
	CreatedAt        string  `json:"criado_em"`
}
