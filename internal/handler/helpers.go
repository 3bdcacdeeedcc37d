package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ============================================================
// Shared helper functions
// ============================================================

// maxWebhookBody bounds an inbound delivery.
const maxWebhookBody = 1 << 20

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = defaultPageSize
	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= maxPageSize {
			pageSize = ps
		}
	}
	return
}

// parseOrder reads ?order=asc|desc; anything else is newest first.
func parseOrder(r *http.Request) (ascending bool) {
	return strings.EqualFold(r.URL.Query().Get("order"), "asc")
}

// readWebhookBody reads the whole request body, failing with
// http.StatusRequestEntityTooLarge past maxWebhookBody.
func readWebhookBody(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, err
		}
		return nil, http.StatusBadRequest, err
	}
	return body, 0, nil
}

// receivedData echoes body back only when it is valid JSON.
func receivedData(body []byte) json.RawMessage {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil
	}
	return json.RawMessage(body)
}
