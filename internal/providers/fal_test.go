package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"creative_gateway/internal/utils"
)

func testFalClient(t *testing.T, handler http.HandlerFunc) (*FalClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &FalClient{
		apiKey:  "test-key",
		baseURL: server.URL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  utils.NewLogger("fal-test"),
	}, server
}

func TestFalClient_GenerateVideo(t *testing.T) {
	var gotPath string
	var gotAuth string
	var gotPayload map[string]any

	client, _ := testFalClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)

		json.NewEncoder(w).Encode(map[string]any{
			"video": map[string]string{
				"url":          "https://v3.fal.media/files/out.mp4",
				"content_type": "video/mp4",
			},
		})
	})

	result, err := client.GenerateVideo(context.Background(), FalVideoRequest{
		Model:        "kling-v2.1",
		Prompt:       "a fox in the snow",
		AspectRatio:  "16:9",
		DurationSecs: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/fal-ai/kling-video/v2.1/standard/text-to-video" {
		t.Errorf("unexpected endpoint: %s", gotPath)
	}
	if gotAuth != "Key test-key" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if gotPayload["duration"] != "5" {
		t.Errorf("duration must be sent as a string, got %v", gotPayload["duration"])
	}
	if result.URL != "https://v3.fal.media/files/out.mp4" {
		t.Errorf("unexpected result URL: %s", result.URL)
	}
	if result.DurationSeconds != 5 {
		t.Errorf("unexpected duration: %v", result.DurationSeconds)
	}
}

func TestFalClient_GenerateVideoWithReferenceUsesImageEndpoint(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any

	client, _ := testFalClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]any{
			"video": map[string]string{"url": "https://v3.fal.media/files/out.mp4"},
		})
	})

	_, err := client.GenerateVideo(context.Background(), FalVideoRequest{
		Model:        "kling-v2.1",
		Prompt:       "animate this",
		AspectRatio:  "1:1",
		DurationSecs: 5,
		ImageURL:     "https://example.com/ref.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/fal-ai/kling-video/v2.1/standard/image-to-video" {
		t.Errorf("expected image-to-video endpoint, got %s", gotPath)
	}
	if gotPayload["image_url"] != "https://example.com/ref.png" {
		t.Errorf("expected image_url in payload, got %v", gotPayload["image_url"])
	}
}

func TestFalClient_ServesPrimaryEngineModels(t *testing.T) {
	// The fallback hop re-issues the request with the primary engine's own
	// model ID; fal hosts the veo family, so these must reach the backend
	// rather than being rejected client-side.
	tests := []struct {
		name     string
		req      FalVideoRequest
		wantPath string
	}{
		{
			name: "veo text to video",
			req: FalVideoRequest{
				Model:         "veo-3.0-generate-001",
				Prompt:        "a product hero shot",
				AspectRatio:   "16:9",
				DurationSecs:  6,
				GenerateAudio: true,
			},
			wantPath: "/fal-ai/veo3",
		},
		{
			name: "veo image to video",
			req: FalVideoRequest{
				Model:         "veo-3.0-generate-001",
				Prompt:        "animate this",
				AspectRatio:   "16:9",
				DurationSecs:  8,
				GenerateAudio: true,
				ImageURL:      "https://example.com/ref.png",
			},
			wantPath: "/fal-ai/veo3/image-to-video",
		},
		{
			name: "veo fast text to video",
			req: FalVideoRequest{
				Model:        "veo-3.0-fast-generate-001",
				Prompt:       "quick cut",
				AspectRatio:  "9:16",
				DurationSecs: 4,
			},
			wantPath: "/fal-ai/veo3/fast",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotPayload map[string]any

			client, _ := testFalClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				json.NewDecoder(r.Body).Decode(&gotPayload)
				json.NewEncoder(w).Encode(map[string]any{
					"video": map[string]string{
						"url":          "https://v3.fal.media/files/out.mp4",
						"content_type": "video/mp4",
					},
				})
			})

			result, err := client.GenerateVideo(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotPath == "" {
				t.Fatal("backend was never contacted")
			}
			if gotPath != tt.wantPath {
				t.Errorf("unexpected endpoint: %s, want %s", gotPath, tt.wantPath)
			}
			if gotPayload["generate_audio"] != tt.req.GenerateAudio {
				t.Errorf("generate_audio = %v, want %v", gotPayload["generate_audio"], tt.req.GenerateAudio)
			}
			if result.DurationSeconds != float64(tt.req.DurationSecs) {
				t.Errorf("unexpected duration: %v", result.DurationSeconds)
			}
		})
	}
}

func TestFalClient_GenerateImage(t *testing.T) {
	client, _ := testFalClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"images": []map[string]string{
				{"url": "https://v3.fal.media/files/img.png", "content_type": "image/png"},
			},
		})
	})

	result, err := client.GenerateImage(context.Background(), "flux-pro-v1.1", "a cat", "1:1", "1K")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.URL != "https://v3.fal.media/files/img.png" {
		t.Errorf("unexpected URL: %s", result.URL)
	}
	if result.ImageCount != 1 {
		t.Errorf("expected image count 1, got %d", result.ImageCount)
	}
}

func TestFalClient_ErrorStatusBecomesProviderError(t *testing.T) {
	client, _ := testFalClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"detail": "prompt rejected"})
	})

	_, err := client.GenerateVideo(context.Background(), FalVideoRequest{
		Model:  "sora-2",
		Prompt: "whatever",
	})

	pe, ok := err.(*ProviderError)
	if !ok {
		t.Fatalf("expected *ProviderError, got %T: %v", err, err)
	}
	if pe.Status != http.StatusUnprocessableEntity {
		t.Errorf("unexpected status: %d", pe.Status)
	}
	if pe.Message != "prompt rejected" {
		t.Errorf("expected vendor detail, got %q", pe.Message)
	}
	if pe.Provider != ProviderFal {
		t.Errorf("unexpected provider: %s", pe.Provider)
	}
}

func TestFalClient_UnknownModelRejected(t *testing.T) {
	client, _ := testFalClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no HTTP call expected for unknown model")
	})

	_, err := client.GenerateVideo(context.Background(), FalVideoRequest{Model: "unknown", Prompt: "x"})
	pe, ok := err.(*ProviderError)
	if !ok || pe.Status != 400 {
		t.Fatalf("expected 400 provider error, got %v", err)
	}
}
