package providers

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"creative_gateway/internal/utils"
)

// GoogleClient is the primary vendor boundary. Text, image and speech calls
// are synchronous; video rendering is a submit-then-poll long-running job.
type GoogleClient struct {
	client *genai.Client
	apiKey string
	logger *utils.Logger
}

// NewGoogleClient creates a client against the Gemini API backend.
func NewGoogleClient(ctx context.Context, apiKey string) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleClient{
		client: client,
		apiKey: apiKey,
		logger: utils.NewLogger("google"),
	}, nil
}

// Name returns the provider identifier.
func (c *GoogleClient) Name() string {
	return ProviderGoogle
}

// GenerateText runs a synchronous completion and normalizes usage counts.
func (c *GoogleClient) GenerateText(ctx context.Context, model, prompt string) (*TextResult, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return nil, wrapGoogleErr(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &ProviderError{Provider: ProviderGoogle, Status: 502, Message: "no candidates returned"}
	}

	result := &TextResult{Text: resp.Text()}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// StreamText returns a finite token stream over a streamed completion.
func (c *GoogleClient) StreamText(ctx context.Context, model, prompt string) *TokenStream {
	next, stop := iter.Pull2(c.client.Models.GenerateContentStream(ctx, model, genai.Text(prompt), nil))

	return NewTokenStream(func() (Chunk, error) {
		resp, err, ok := next()
		if !ok {
			return Chunk{Done: true}, nil
		}
		if err != nil {
			return Chunk{}, wrapGoogleErr(err)
		}
		return Chunk{Text: resp.Text()}, nil
	}, stop)
}

// GenerateImage runs a synchronous image generation and returns the bytes the
// vendor already produced; no download hop is needed.
func (c *GoogleClient) GenerateImage(ctx context.Context, model, prompt, aspectRatio, sizeTier string) (*MediaResult, error) {
	resp, err := c.client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return nil, wrapGoogleErr(err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, &ProviderError{Provider: ProviderGoogle, Status: 502, Message: "no images returned"}
	}

	img := resp.GeneratedImages[0].Image
	contentType := img.MIMEType
	if contentType == "" {
		contentType = "image/png"
	}

	return &MediaResult{
		Bytes:       img.ImageBytes,
		ContentType: contentType,
		ImageCount:  len(resp.GeneratedImages),
		SizeTier:    sizeTier,
	}, nil
}

// GenerateSpeech synthesizes the prompt into audio. Gemini TTS returns raw
// 16-bit PCM at 24kHz, which is wrapped into a WAV container for storage.
func (c *GoogleClient) GenerateSpeech(ctx context.Context, model, text, voice string) (*MediaResult, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(text), cfg)
	if err != nil {
		return nil, wrapGoogleErr(err)
	}

	blob := firstInlineBlob(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, &ProviderError{Provider: ProviderGoogle, Status: 502, Message: "no audio returned"}
	}

	data := blob.Data
	contentType := blob.MIMEType
	seconds := 0.0
	if strings.HasPrefix(contentType, "audio/L16") || contentType == "" {
		seconds = float64(len(data)) / float64(speechSampleRate*speechSampleBytes)
		data = wavFromPCM(data)
		contentType = "audio/wav"
	}

	return &MediaResult{
		Bytes:           data,
		ContentType:     contentType,
		DurationSeconds: seconds,
	}, nil
}

// VideoJob is the opaque handle for a submitted Veo rendering operation.
type VideoJob struct {
	client   *GoogleClient
	op       *genai.GenerateVideosOperation
	duration float64
}

// SubmitVideoJob starts a long-running video generation. Submission failures
// are fatal; there is no retry at this layer.
func (c *GoogleClient) SubmitVideoJob(ctx context.Context, spec VideoJobSpec) (*VideoJob, error) {
	var image *genai.Image
	if len(spec.ReferenceImage) > 0 {
		image = &genai.Image{ImageBytes: spec.ReferenceImage, MIMEType: spec.ReferenceMIME}
	}

	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    spec.AspectRatio,
		Resolution:     spec.Resolution,
	}
	if spec.DurationSecs > 0 {
		cfg.DurationSeconds = genai.Ptr(int32(spec.DurationSecs))
	}

	op, err := c.client.Models.GenerateVideos(ctx, spec.Model, spec.Prompt, image, cfg)
	if err != nil {
		return nil, wrapGoogleErr(err)
	}

	c.logger.Info("Submitted video job", "model", spec.Model, "operation", op.Name)
	return &VideoJob{client: c, op: op, duration: float64(spec.DurationSecs)}, nil
}

// Poll queries the operation once. When done it extracts the normalized
// result at the boundary; the vendor's operation shape never leaks upward.
func (j *VideoJob) Poll(ctx context.Context) (bool, *MediaResult, error) {
	op, err := j.client.client.Operations.GetVideosOperation(ctx, j.op, nil)
	if err != nil {
		return false, nil, wrapGoogleErr(err)
	}
	j.op = op

	if !op.Done {
		return false, nil, nil
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return true, nil, &ProviderError{Provider: ProviderGoogle, Status: 502, Message: "operation finished without videos"}
	}

	video := op.Response.GeneratedVideos[0].Video
	contentType := video.MIMEType
	if contentType == "" {
		contentType = "video/mp4"
	}

	result := &MediaResult{
		ContentType:     contentType,
		DurationSeconds: j.duration,
	}
	if len(video.VideoBytes) > 0 {
		result.Bytes = video.VideoBytes
	} else {
		// The asset URI is only downloadable with the API key appended.
		result.URL = appendKey(video.URI, j.client.apiKey)
	}
	return true, result, nil
}

func appendKey(uri, key string) string {
	if strings.Contains(uri, "?") {
		return uri + "&key=" + key
	}
	return uri + "?key=" + key
}

func firstInlineBlob(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil {
				return part.InlineData
			}
		}
	}
	return nil
}

// wrapGoogleErr converts SDK errors into the typed provider error so the
// retry policy can classify overloads by status.
func wrapGoogleErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: ProviderGoogle, Status: apiErr.Code, Message: apiErr.Message}
	}
	return err
}

const (
	speechSampleRate  = 24000
	speechSampleBytes = 2 // 16-bit mono PCM
)

// wavFromPCM prefixes raw little-endian PCM with a minimal RIFF header.
func wavFromPCM(pcm []byte) []byte {
	var buf bytes.Buffer
	dataLen := uint32(len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(speechSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(speechSampleRate*speechSampleBytes))
	binary.Write(&buf, binary.LittleEndian, uint16(speechSampleBytes))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)

	return buf.Bytes()
}
