package domain

import "encoding/json"

// Webhook sources.
const (
	SourceEngagement = "engagement"
	SourceVisit      = "visit"
)

// IngestResult is the outcome of one successfully handled webhook delivery.
type IngestResult struct {
	Source    string
	Record    any
	Duplicate bool
}

// WebhookAccepted is the success body of a webhook POST.
type WebhookAccepted struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Data      any    `json:"data"`
}

// WebhookRejected is the body returned when a payload fails validation.
type WebhookRejected struct {
	Error        string          `json:"error"`
	ReceivedData json.RawMessage `json:"received_data,omitempty"`
}

// WebhookFailed is the body returned on malformed input or store failures.
type WebhookFailed struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WebhookDescription is served on GET of a webhook path. It documents the
// candidate paths consulted for every canonical field.
type WebhookDescription struct {
	Status         string              `json:"status"`
	Source         string              `json:"source"`
	Method         string              `json:"method"`
	ContentType    string              `json:"content_type"`
	RequiredAnyOf  []string            `json:"required_any_of,omitempty"`
	ExpectedFields map[string][]string `json:"expected_fields"`
}
