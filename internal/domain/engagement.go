package domain

// ============================================================
// Engagements (atendimentos) from the chat/ticketing platform
// ============================================================

// EngagementsTable is the relational table holding engagements.
const EngagementsTable = "atendimentos"

// Sentinel values substituted when a field resolves from no candidate path.
const (
	UnidentifiedName = "unidentified"
	PhoneNotProvided = "not provided"
	EmptyMessage     = "empty message"
	TimeUnavailable  = "N/A"
)

// Canonical engagement statuses.
const (
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
	StatusAbandoned  = "abandoned"
	StatusUnknown    = "unknown"
)

// Message is one entry of an engagement's message history.
type Message struct {
	Time    string `json:"hora"`
	Content string `json:"conteudo"`
}

// Engagement is the canonical record stored for one customer-service
// conversation, independent of which provider shape produced it.
type Engagement struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"nome"`
	CustomerPhone string    `json:"telefone"`
	Status        string    `json:"status"`
	Answered      bool      `json:"respondeu"`
	StartTime     string    `json:"data_inicio"`
	EndTime       *string   `json:"data_fim"`
	Messages      []Message `json:"mensagens"`
	Tags          []string  `json:"tags"`
	CleanMessage  string    `json:"mensagem_limpa"`
	CreatedAt     string    `json:"criado_em"`
}

// HasKnownCustomer reports whether at least one of name and phone was
// resolved from the payload rather than defaulted.
func (e *Engagement) HasKnownCustomer() bool {
	return e.CustomerName != UnidentifiedName || e.CustomerPhone != PhoneNotProvided
}
