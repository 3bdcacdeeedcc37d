package normalize

import (
	"strings"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
)

// StatusTable maps lower-cased upstream status tokens to canonical
// statuses. Tokens missing from the table pass through unchanged.
var StatusTable = map[string]string{
	"open":        domain.StatusInProgress,
	"opened":      domain.StatusInProgress,
	"pending":     domain.StatusInProgress,
	"in_progress": domain.StatusInProgress,

	"closed":    domain.StatusFinished,
	"resolved":  domain.StatusFinished,
	"finished":  domain.StatusFinished,
	"completed": domain.StatusFinished,

	"abandoned": domain.StatusAbandoned,
	"timeout":   domain.StatusAbandoned,
	"cancelled": domain.StatusAbandoned,
}

// Status maps an upstream status token to its canonical form. Unknown
// tokens are returned lower-cased rather than collapsed, so new provider
// statuses stay visible on the dashboard.
func Status(raw string) string {
	token := strings.ToLower(strings.TrimSpace(raw))
	if token == "" {
		return domain.StatusUnknown
	}
	if canonical, ok := StatusTable[token]; ok {
		return canonical
	}
	return token
}
