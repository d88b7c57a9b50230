package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/credreview/internal/application"
	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CheckRequest is the JSON body of the check-pwned endpoint. Either a batch
// or a single password is accepted; the batch wins when both are present.
type CheckRequest struct {
	Passwords *[]string `json:"passwords"`
	Password  *string   `json:"password"`
}

// CheckResponse carries one count per submitted password, in order. Unknown
// counts encode as null.
type CheckResponse struct {
	Counts []model.BreachCount `json:"counts"`
}

// ProbeRequest is the JSON body of the probe endpoint.
type ProbeRequest struct {
	URL string `json:"url"`
}

// ProbeHistoryResponse is the JSON representation of a stored probe outcome.
type ProbeHistoryResponse struct {
	Site       string `json:"site"`
	Status     string `json:"status"`
	HTTPStatus *int   `json:"httpStatus"`
	TimeMs     *int   `json:"timeMs"`
	CheckedAt  string `json:"checked_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status     string                    `json:"status"`
	Time       string                    `json:"time"`
	Components []ComponentHealthResponse `json:"components"`
}

// ComponentHealthResponse is one dependency in HealthResponse.
type ComponentHealthResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// AuthURLResponse carries the consent page URL.
type AuthURLResponse struct {
	URL string `json:"url"`
}

func toProbeHistoryResponse(e model.ProbeHistoryEntry) ProbeHistoryResponse {
	return ProbeHistoryResponse{
		Site:       e.Site,
		Status:     string(e.Result.Status),
		HTTPStatus: e.Result.HTTPStatus,
		TimeMs:     e.Result.TimeMs,
		CheckedAt:  e.CheckedAt.UTC().Format(time.RFC3339),
	}
}

func toHealthResponse(report application.HealthReport, now time.Time) HealthResponse {
	resp := HealthResponse{
		Status:     string(report.Status),
		Time:       now.UTC().Format(time.RFC3339),
		Components: make([]ComponentHealthResponse, 0, len(report.Components)),
	}
	for _, c := range report.Components {
		resp.Components = append(resp.Components, ComponentHealthResponse{
			Name:   c.Name,
			Status: string(c.Status),
			Error:  c.Error,
		})
	}
	return resp
}
