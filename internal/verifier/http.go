package verifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/repository"
)

var _ repository.Verifier = (*HTTPVerifier)(nil)

// HTTPVerifier asks the certificate authority's lookup endpoint about one
// certificate at a time.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPVerifier creates a verifier for GET {baseURL}/verify/{cert}.
func NewHTTPVerifier(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Verify returns true on a 2xx answer and false on 404. Any other status is
// an error.
func (v *HTTPVerifier) Verify(ctx context.Context, cert string) (bool, error) {
	endpoint := v.baseURL + "/verify/" + url.PathEscape(strings.TrimSpace(cert))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("verifier: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("verifier: %s: %w", cert, err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		v.logger.Debug("Unexpected verifier response",
			zap.String("certificate", cert),
			zap.Int("status", resp.StatusCode),
		)
		return false, fmt.Errorf("verifier: %s: unexpected status %d", cert, resp.StatusCode)
	}
}
