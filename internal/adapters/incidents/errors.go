package incidents

import (
	"errors"
	"net/http"

	"nfirscore/internal/blob"
	"nfirscore/internal/core"
	"nfirscore/pkg/domain"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error    string            `json:"error"`
	Reason   string            `json:"reason,omitempty"`
	Findings []domain.Finding  `json:"findings,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, core.ErrAttachmentNotFound), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAttachmentsDisabled), errors.Is(err, core.ErrHistoryUnavailable), errors.Is(err, blob.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) errorResponse {
	body := errorResponse{Error: err.Error()}
	var transition *domain.InvalidTransitionError
	if errors.As(err, &transition) {
		body.Reason = string(transition.Reason)
		body.Findings = transition.Findings
	}
	return body
}
