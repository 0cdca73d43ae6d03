package http

import (
	"errors"
	"net/http"

	"github.com/Harsh-BH/certqueue/internal/domain"
)

// statusFor maps a use case error onto an HTTP status and a client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound, "Job not found"
	case errors.Is(err, domain.ErrReferenceNotFound):
		return http.StatusNotFound, "Certificate not found"
	case errors.Is(err, domain.ErrNoSuccesses),
		errors.Is(err, domain.ErrJobNotCompleted),
		errors.Is(err, domain.ErrEmptySheet),
		errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrUnreadableInput),
		errors.Is(err, domain.ErrUnsupportedKind):
		return http.StatusBadRequest, rootMessage(err)
	case errors.Is(err, domain.ErrArtifactBusy):
		return http.StatusConflict, domain.ErrArtifactBusy.Error()
	case errors.Is(err, domain.ErrPublishFailed):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// rootMessage returns the message of the first domain error err wraps, so
// parser details stay out of client responses.
func rootMessage(err error) string {
	for _, known := range []error{
		domain.ErrNoSuccesses,
		domain.ErrJobNotCompleted,
		domain.ErrEmptySheet,
		domain.ErrEmptyBatch,
		domain.ErrUnreadableInput,
		domain.ErrUnsupportedKind,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
