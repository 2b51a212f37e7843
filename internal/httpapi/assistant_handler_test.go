package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"creative_gateway/internal/models"
	"creative_gateway/internal/providers"
	"creative_gateway/internal/ratelimit"
	"creative_gateway/internal/utils"
)

type mockStreamer struct {
	chunks []providers.Chunk
	err    error
	model  string
	prompt string
}

func (m *mockStreamer) StreamText(ctx context.Context, model, prompt string) *providers.TokenStream {
	m.model = model
	m.prompt = prompt
	i := 0
	return providers.NewTokenStream(func() (providers.Chunk, error) {
		if i < len(m.chunks) {
			c := m.chunks[i]
			i++
			return c, nil
		}
		if m.err != nil {
			return providers.Chunk{}, m.err
		}
		return providers.Chunk{Done: true}, nil
	}, func() {})
}

func streamDeps(streamer AssistantStreamer, recorder *mockRecorder) *Dependencies {
	return &Dependencies{
		Assistant: streamer,
		RateLimit: ratelimit.NewNoopLimiter(),
		Ledger:    recorder,
		logger:    utils.NewLogger("httpapi-test"),
	}
}

func TestHandleAssistantStream_StreamsChunks(t *testing.T) {
	streamer := &mockStreamer{chunks: []providers.Chunk{{Text: "hel"}, {Text: "lo"}}}
	recorder := &mockRecorder{}
	deps := streamDeps(streamer, recorder)

	w := httptest.NewRecorder()
	deps.handleAssistantStream(w, authedRequest("POST", "/v1/assistant/stream", `{"prompt":"hi"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{`data: {"text":"hel"}`, `data: {"text":"lo"}`, "data: [DONE]\n\n"} {
		if !strings.Contains(body, want) {
			t.Errorf("stream body missing %q:\n%s", want, body)
		}
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("stream must end with the DONE marker:\n%s", body)
	}

	if streamer.model != "gemini-2.5-flash" {
		t.Errorf("expected default model, got %q", streamer.model)
	}

	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Operation != models.OperationAssistantChat || entry.Status != models.UsageStatusSuccess {
		t.Errorf("unexpected ledger entry: %+v", entry)
	}
}

func TestHandleAssistantStream_MidFlightErrorStillTerminates(t *testing.T) {
	streamer := &mockStreamer{
		chunks: []providers.Chunk{{Text: "partial"}},
		err:    errors.New("upstream reset"),
	}
	recorder := &mockRecorder{}
	deps := streamDeps(streamer, recorder)

	w := httptest.NewRecorder()
	deps.handleAssistantStream(w, authedRequest("POST", "/v1/assistant/stream", `{"prompt":"hi","model":"gemini-2.5-pro"}`))

	body := w.Body.String()
	if !strings.Contains(body, `data: {"text":"partial"}`) {
		t.Errorf("partial output missing:\n%s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("DONE marker must be sent even after an error:\n%s", body)
	}

	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Status != models.UsageStatusFailed || entry.ErrorMessage != "upstream reset" {
		t.Errorf("expected failed entry with error message, got %+v", entry)
	}
	if entry.Model != "gemini-2.5-pro" {
		t.Errorf("model override not recorded: %q", entry.Model)
	}
}

func TestHandleAssistantStream_MissingPrompt(t *testing.T) {
	deps := streamDeps(&mockStreamer{}, &mockRecorder{})

	w := httptest.NewRecorder()
	deps.handleAssistantStream(w, authedRequest("POST", "/v1/assistant/stream", `{"model":"gemini-2.5-flash"}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if len(deps.Ledger.(*mockRecorder).entries) != 0 {
		t.Error("rejected requests must not produce ledger entries")
	}
}
