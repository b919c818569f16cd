package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/turnstilehq/turnstile/pkg/api"
	"github.com/turnstilehq/turnstile/pkg/log"
)

type (
	// Delivery is the envelope posted to the mail gateway
	Delivery struct {
		Notification *api.Notification `json:"notification"`
		FormID       api.FormID        `json:"form_id"`
		FormTitle    string            `json:"form_title"`
		EntryID      api.EntryID       `json:"entry_id"`
	}

	// HTTPTransport delivers notifications by posting them to an external
	// mail gateway endpoint
	HTTPTransport struct {
		httpClient *http.Client
		endpoint   string
	}
)

var (
	ErrGatewayError = errors.New("mail gateway returned HTTP error")
	ErrNoEndpoint   = errors.New("mail gateway endpoint not configured")
)

// NewHTTPTransport creates a transport posting to the given gateway endpoint
func NewHTTPTransport(endpoint string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint: endpoint,
	}
}

// Deliver posts one assembled notification to the gateway
func (t *HTTPTransport) Deliver(
	ctx context.Context, n *api.Notification, form *api.Form,
	entry *api.Entry,
) error {
	if t.endpoint == "" {
		return ErrNoEndpoint
	}

	body, err := json.Marshal(Delivery{
		Notification: n,
		FormID:       form.ID,
		FormTitle:    form.Title,
		EntryID:      entry.ID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, t.endpoint, bytes.NewBuffer(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	dur := time.Since(start)
	if err != nil {
		slog.Error("Notification delivery failed",
			log.Recipient(n.To),
			log.Duration(dur),
			log.Error(err))
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		slog.Error("Notification delivery rejected",
			log.Recipient(n.To),
			slog.Int("status_code", resp.StatusCode))
		return fmt.Errorf("%w: %d", ErrGatewayError, resp.StatusCode)
	}

	slog.Debug("Notification delivered",
		log.Recipient(n.To),
		log.Duration(dur))
	return nil
}

// LogTransport writes notifications to the log instead of delivering them,
// for development and dry runs
type LogTransport struct{}

func (LogTransport) Deliver(
	_ context.Context, n *api.Notification, form *api.Form, entry *api.Entry,
) error {
	slog.Info("Notification (log transport)",
		log.Recipient(n.To),
		slog.String("subject", n.Subject),
		log.FormID(form.ID),
		log.EntryID(entry.ID))
	return nil
}
