package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"creative_gateway/internal/generation"
	"creative_gateway/internal/ledger"
	"creative_gateway/internal/middleware"
	"creative_gateway/internal/models"
	"creative_gateway/internal/providers"
)

// generateRequest is the wire shape of POST /v1/generations.
type generateRequest struct {
	Modality        string              `json:"modality"`
	Prompt          string              `json:"prompt"`
	AspectRatio     string              `json:"aspect_ratio,omitempty"`
	Quality         string              `json:"quality,omitempty"`
	DurationSeconds int                 `json:"duration_seconds,omitempty"`
	Model           string              `json:"model,omitempty"`
	Reference       []generateReference `json:"reference,omitempty"`
}

type generateReference struct {
	URL         string `json:"url,omitempty"`
	Data        string `json:"data,omitempty"` // base64-encoded bytes
	ContentType string `json:"content_type,omitempty"`
}

type generateResponse struct {
	RequestID    string `json:"request_id"`
	URL          string `json:"url,omitempty"`
	Text         string `json:"text,omitempty"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	UsedFallback bool   `json:"used_fallback"`
	LatencyMs    int64  `json:"latency_ms"`
}

// handleGenerate is the entry point for creative generations.
//
// Flow:
//  1. Validate method
//  2. Identity comes from the auth middleware
//  3. Rate limit per key
//  4. Decode JSON body into the provider-neutral request
//  5. Hand off to the orchestrator
//  6. Map the outcome to a status code
func (d *Dependencies) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var payload generateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		d.recordRejected(ctx, identity, payload, start, "invalid JSON body")
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := payload.toCreativeRequest(identity)
	if err != nil {
		d.recordRejected(ctx, identity, payload, start, err.Error())
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	allowed, remaining, resetAt, err := d.RateLimit.AllowWithDetails(ctx, identity.KeyHash, identity.RateLimit)
	if err != nil {
		// Redis being down must not take generations with it.
		d.logger.Warn("Rate limit check failed, allowing request", "error", err)
	} else if identity.RateLimit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(identity.RateLimit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
	if err == nil && !allowed {
		d.recordRejected(ctx, identity, payload, start, "rate limit exceeded")
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	result, err := d.Generator.Generate(ctx, req)
	if err != nil {
		status, message := mapGenerationError(err)
		writeJSONError(w, status, message)
		return
	}

	resp := generateResponse{
		RequestID:    newRequestID(),
		URL:          result.URL,
		Text:         result.Text,
		Provider:     result.Provider,
		Model:        result.Model,
		UsedFallback: result.UsedFallback,
		LatencyMs:    time.Since(start).Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (p *generateRequest) toCreativeRequest(identity *models.Identity) (*models.CreativeRequest, error) {
	req := &models.CreativeRequest{
		Modality:        models.Modality(p.Modality),
		Prompt:          p.Prompt,
		AspectRatio:     p.AspectRatio,
		Quality:         models.QualityTier(p.Quality),
		DurationSeconds: p.DurationSeconds,
		Model:           p.Model,
		UserID:          identity.UserID,
		OrgID:           identity.OrgID,
	}

	for _, ref := range p.Reference {
		media := models.ReferenceMedia{URL: ref.URL, ContentType: ref.ContentType}
		if ref.Data != "" {
			data, err := base64.StdEncoding.DecodeString(ref.Data)
			if err != nil {
				return nil, fmt.Errorf("reference data is not valid base64")
			}
			media.Bytes = data
		}
		req.Reference = append(req.Reference, media)
	}

	return req, nil
}

// recordRejected writes the failed usage record for a request rejected
// before it ever reached the orchestrator. Requests the body failed to
// decode fall back to the text operation.
func (d *Dependencies) recordRejected(ctx context.Context, identity *models.Identity,
	payload generateRequest, start time.Time, msg string) {
	d.Ledger.Record(ctx, ledger.Entry{
		UserID:       identity.UserID,
		OrgID:        identity.OrgID,
		Endpoint:     "/v1/generations",
		Operation:    operationForModality(models.Modality(payload.Modality)),
		Model:        payload.Model,
		LatencyMs:    time.Since(start).Milliseconds(),
		Status:       models.UsageStatusFailed,
		ErrorMessage: msg,
	})
}

// operationForModality names the ledger operation for a request that never
// reached the orchestrator.
func operationForModality(m models.Modality) models.Operation {
	switch m {
	case models.ModalityText:
		return models.OperationGenerateText
	case models.ModalityImage:
		return models.OperationGenerateImage
	case models.ModalityVideo:
		return models.OperationGenerateVideo
	case models.ModalitySpeech:
		return models.OperationGenerateSpeech
	default:
		return models.OperationGenerateText
	}
}

// mapGenerationError translates orchestrator outcomes into HTTP status
// codes. Provider payloads are never echoed back verbatim.
func mapGenerationError(err error) (int, string) {
	var validationErr *generation.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Message
	}

	if errors.Is(err, generation.ErrPollTimeout) {
		return http.StatusGatewayTimeout, "video generation did not finish in time"
	}

	var persistErr *generation.PersistenceError
	if errors.As(err, &persistErr) {
		return http.StatusInternalServerError, "failed to store generated asset"
	}

	var providerErr *providers.ProviderError
	if errors.As(err, &providerErr) {
		switch providerErr.Status {
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests, "provider rate limit exceeded"
		case http.StatusUnauthorized, http.StatusForbidden:
			return http.StatusBadGateway, "provider rejected gateway credentials"
		default:
			return http.StatusBadGateway, "provider error"
		}
	}

	return http.StatusInternalServerError, "internal error"
}

// newRequestID returns a UUID request ID for tracing
func newRequestID() string {
	return uuid.New().String()
}

// writeJSONError writes the error envelope all endpoints share
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
