package service

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
)

var engagementCSVHeader = []string{
	"id", "nome", "telefone", "status", "respondeu", "data_inicio", "data_fim",
	"mensagem_limpa", "tags", "mensagens", "criado_em",
}

var visitCSVHeader = []string{
	"id", "url_origem", "ip_visitante", "user_agent", "pagina_visitada",
	"tempo_permanencia", "origem_trafego", "campanha", "meio", "termo",
	"dispositivo", "navegador", "localizacao", "converteu", "acao_realizada",
	"timestamp_visita", "criado_em",
}

// WriteEngagementsCSV writes rows with the table's column names as header.
// Tags and messages are JSON-encoded cells; a null end time is empty.
func WriteEngagementsCSV(w io.Writer, rows []domain.Engagement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(engagementCSVHeader); err != nil {
		return err
	}
	for _, e := range rows {
		if err := cw.Write([]string{
			e.ID,
			e.CustomerName,
			e.CustomerPhone,
			e.Status,
			strconv.FormatBool(e.Answered),
			e.StartTime,
			deref(e.EndTime),
			e.CleanMessage,
			jsonCell(e.Tags),
			jsonCell(e.Messages),
			e.CreatedAt,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVisitsCSV writes rows with the table's column names as header.
func WriteVisitsCSV(w io.Writer, rows []domain.Visit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(visitCSVHeader); err != nil {
		return err
	}
	for _, v := range rows {
		if err := cw.Write([]string{
			v.ID,
			v.OriginURL,
			v.IPAddress,
			v.UserAgent,
			v.PageVisited,
			strconv.FormatInt(v.DwellTimeSeconds, 10),
			v.TrafficSource,
			deref(v.Campaign),
			deref(v.Medium),
			deref(v.Term),
			v.DeviceType,
			v.Browser,
			v.Location,
			strconv.FormatBool(v.Converted),
			v.ActionTaken,
			v.VisitTimestamp,
			v.CreatedAt,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func jsonCell(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
