package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"creative_gateway/internal/utils"
)

const (
	falDefaultBaseURL = "https://fal.run"
	falTimeout        = 300 * time.Second // synchronous video calls are slow
)

// falEndpoints maps gateway model IDs to the vendor's endpoint paths. The
// image-conditioned variant is selected when the request carries a reference.
var falEndpoints = map[string]struct {
	TextToVideo  string
	ImageToVideo string
	TextToImage  string
}{
	// The veo entries serve the fallback hop: when the primary vendor
	// fails fatally, the same veo model is re-run on fal's hosting of it.
	"veo-3.0-generate-001": {
		TextToVideo:  "fal-ai/veo3",
		ImageToVideo: "fal-ai/veo3/image-to-video",
	},
	"veo-3.0-fast-generate-001": {
		TextToVideo:  "fal-ai/veo3/fast",
		ImageToVideo: "fal-ai/veo3/fast/image-to-video",
	},
	"kling-v2.1": {
		TextToVideo:  "fal-ai/kling-video/v2.1/standard/text-to-video",
		ImageToVideo: "fal-ai/kling-video/v2.1/standard/image-to-video",
	},
	"sora-2": {
		TextToVideo:  "fal-ai/sora-2/text-to-video",
		ImageToVideo: "fal-ai/sora-2/image-to-video",
	},
	"flux-pro-v1.1": {
		TextToImage: "fal-ai/flux-pro/v1.1",
	},
}

// FalClient is the secondary vendor boundary: a single synchronous call that
// returns either an inline result object or a URL to the generated asset.
type FalClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *utils.Logger
}

// NewFalClient creates a fal.ai client.
func NewFalClient(apiKey string) (*FalClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("fal API key is required")
	}

	return &FalClient{
		apiKey:  apiKey,
		baseURL: falDefaultBaseURL,
		client: &http.Client{
			Timeout: falTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: utils.NewLogger("fal"),
	}, nil
}

// Name returns the provider identifier.
func (c *FalClient) Name() string {
	return ProviderFal
}

// FalVideoRequest carries the already-translated parameters for a video call.
type FalVideoRequest struct {
	Model         string
	Prompt        string
	AspectRatio   string
	DurationSecs  int
	ImageURL      string
	GenerateAudio bool
}

// falResponse covers both result shapes the vendor returns.
type falResponse struct {
	Video  *falFile  `json:"video"`
	Image  *falFile  `json:"image"`
	Images []falFile `json:"images"`
}

type falFile struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// GenerateVideo runs a synchronous video generation.
func (c *FalClient) GenerateVideo(ctx context.Context, req FalVideoRequest) (*MediaResult, error) {
	endpoints, ok := falEndpoints[req.Model]
	if !ok || endpoints.TextToVideo == "" {
		return nil, &ProviderError{Provider: ProviderFal, Status: 400, Message: "unsupported video model: " + req.Model}
	}

	endpoint := endpoints.TextToVideo
	payload := map[string]any{
		"prompt":         req.Prompt,
		"aspect_ratio":   req.AspectRatio,
		"duration":       fmt.Sprintf("%d", req.DurationSecs),
		"generate_audio": req.GenerateAudio,
	}
	if req.ImageURL != "" {
		endpoint = endpoints.ImageToVideo
		payload["image_url"] = req.ImageURL
	}

	resp, err := c.call(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if resp.Video == nil || resp.Video.URL == "" {
		return nil, &ProviderError{Provider: ProviderFal, Status: 502, Message: "response contained no video"}
	}

	return &MediaResult{
		URL:             resp.Video.URL,
		ContentType:     resp.Video.ContentType,
		DurationSeconds: float64(req.DurationSecs),
	}, nil
}

// GenerateImage runs a synchronous image generation.
func (c *FalClient) GenerateImage(ctx context.Context, model, prompt, aspectRatio, sizeTier string) (*MediaResult, error) {
	endpoints, ok := falEndpoints[model]
	if !ok || endpoints.TextToImage == "" {
		return nil, &ProviderError{Provider: ProviderFal, Status: 400, Message: "unsupported image model: " + model}
	}

	resp, err := c.call(ctx, endpoints.TextToImage, map[string]any{
		"prompt":       prompt,
		"aspect_ratio": aspectRatio,
		"num_images":   1,
	})
	if err != nil {
		return nil, err
	}

	file := resp.Image
	if file == nil && len(resp.Images) > 0 {
		file = &resp.Images[0]
	}
	if file == nil || file.URL == "" {
		return nil, &ProviderError{Provider: ProviderFal, Status: 502, Message: "response contained no image"}
	}

	return &MediaResult{
		URL:         file.URL,
		ContentType: file.ContentType,
		ImageCount:  1,
		SizeTier:    sizeTier,
	}, nil
}

// call posts a payload to a fal endpoint and decodes the result shape.
func (c *FalClient) call(ctx context.Context, endpoint string, payload map[string]any) (*falResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/" + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: ProviderFal,
			Status:   resp.StatusCode,
			Message:  falErrorDetail(respBody),
		}
	}

	c.logger.Debug("fal call completed", "endpoint", endpoint, "latency_ms", time.Since(start).Milliseconds())

	var parsed falResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &parsed, nil
}

// falErrorDetail extracts the vendor's detail message without leaking the
// whole payload into caller-visible errors.
func falErrorDetail(body []byte) string {
	var parsed struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != nil {
		return fmt.Sprintf("%v", parsed.Detail)
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
