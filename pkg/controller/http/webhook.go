package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitdub/pkg/domain/interfaces"
	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/gitdub/pkg/utils/async"
	"github.com/m-mizutani/goerr/v2"
)

// Response status values
const (
	StatusSuccess  = "success"
	StatusAccepted = "accepted"
	StatusIgnored  = "ignored"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// WebhookHandler handles GitHub webhooks
type WebhookHandler struct {
	secret    string
	async     bool
	processor interfaces.EventProcessor
}

// HandlerOption configures a WebhookHandler
type HandlerOption func(*WebhookHandler)

// WithHandlerSecret enables X-Hub-Signature-256 verification
func WithHandlerSecret(secret string) HandlerOption {
	return func(h *WebhookHandler) {
		h.secret = secret
	}
}

// WithHandlerAsync processes events in the background after responding
func WithHandlerAsync(enabled bool) HandlerOption {
	return func(h *WebhookHandler) {
		h.async = enabled
	}
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor interfaces.EventProcessor, opts ...HandlerOption) *WebhookHandler {
	h := &WebhookHandler{
		processor: processor,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle processes webhook requests
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	// Read payload
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		writeError(w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Verify signature over the raw body, as GitHub signs it
	if h.secret != "" {
		signature := r.Header.Get("X-Hub-Signature-256")
		if !h.verifySignature(body, signature) {
			logger.Warn("Invalid webhook signature")
			writeError(w, goerr.New("invalid signature"), http.StatusUnauthorized)
			return
		}
	}

	payload, err := extractPayload(r.Header.Get("Content-Type"), body)
	if err != nil {
		logger.Warn("Failed to extract webhook payload", "error", err)
		writeError(w, err, http.StatusBadRequest)
		return
	}

	deliveryID := r.Header.Get("X-GitHub-Delivery")
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	event := &model.WebhookEvent{
		ID:         deliveryID,
		Type:       model.WebhookEventType(r.Header.Get("X-GitHub-Event")),
		ReceivedAt: time.Now(),
		RawPayload: payload,
	}

	if !event.IsSupportedEvent() {
		logger.Info("Ignoring unsupported event type", "event_type", event.Type, "delivery_id", event.ID)
		writeStatus(w, r, http.StatusOK, StatusIgnored, nil)
		return
	}

	// Parse event using GitHub SDK
	parsed, err := github.ParseWebHook(string(event.Type), event.RawPayload)
	if err != nil {
		logger.Error("Failed to parse webhook payload", "error", err)
		writeError(w, goerr.Wrap(err, "invalid JSON payload"), http.StatusBadRequest)
		return
	}

	if h.async {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return h.processor.ProcessEvent(ctx, event, parsed)
		})
		writeStatus(w, r, http.StatusAccepted, StatusAccepted, nil)
		return
	}

	if err := h.processor.ProcessEvent(ctx, event, parsed); err != nil {
		switch {
		case errors.Is(err, model.ErrUnknownBackend):
			writeStatus(w, r, http.StatusInternalServerError, StatusFailed, err)
		case errors.Is(err, model.ErrNoMatchingRepository):
			writeStatus(w, r, http.StatusOK, StatusRejected, err)
		default:
			writeStatus(w, r, http.StatusOK, StatusFailed, err)
		}
		return
	}

	writeStatus(w, r, http.StatusOK, StatusSuccess, nil)
}

// extractPayload returns the JSON document of a delivery. Form encoded
// deliveries carry it in the payload field.
func extractPayload(contentType string, body []byte) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/x-www-form-urlencoded" {
		return body, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse form body")
	}
	payload := values.Get("payload")
	if payload == "" {
		return nil, goerr.New("missing payload field in form body")
	}
	return []byte(payload), nil
}

// verifySignature verifies the webhook signature
func (h *WebhookHandler) verifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}

	// Remove "sha256=" prefix if present
	signature = strings.TrimPrefix(signature, "sha256=")

	// Calculate HMAC-SHA256
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedMAC))
}

func writeStatus(w http.ResponseWriter, r *http.Request, code int, status string, cause error) {
	resp := map[string]string{"status": status}
	if cause != nil {
		resp["error"] = cause.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}
