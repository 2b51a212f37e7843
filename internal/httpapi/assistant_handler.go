package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"creative_gateway/internal/ledger"
	"creative_gateway/internal/middleware"
	"creative_gateway/internal/models"
)

// assistantRequest is the wire shape of POST /v1/assistant/stream.
type assistantRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

// handleAssistantStream streams a chat completion over SSE. Each token chunk
// is one data event; the stream terminates with a literal [DONE] marker.
func (d *Dependencies) handleAssistantStream(w http.ResponseWriter, r *http.Request) {
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

	var payload assistantRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Prompt == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	model := payload.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stream := d.Assistant.StreamText(ctx, model, payload.Prompt)
	defer stream.Close()

	status := models.UsageStatusSuccess
	errMsg := ""
	for {
		chunk, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				// Headers are gone; the best we can do is end the stream.
				status = models.UsageStatusFailed
				errMsg = err.Error()
				d.logger.Error("Assistant stream failed mid-flight", "model", model, "error", err)
			}
			break
		}
		if chunk.Text == "" {
			continue
		}

		data, _ := json.Marshal(map[string]string{"text": chunk.Text})
		w.Write([]byte("data: "))
		w.Write(data)
		w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()

	d.Ledger.Record(ctx, ledger.Entry{
		UserID:       identity.UserID,
		OrgID:        identity.OrgID,
		Endpoint:     "/v1/assistant/stream",
		Operation:    models.OperationAssistantChat,
		Provider:     "google",
		Model:        model,
		LatencyMs:    time.Since(start).Milliseconds(),
		Status:       status,
		ErrorMessage: errMsg,
	})
}
