package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"creative_gateway/internal/ledger"
	"creative_gateway/internal/models"
	"creative_gateway/internal/providers"
	"creative_gateway/internal/utils"
)

// Default models per modality when the caller gives no hint.
const (
	defaultTextModel   = "gemini-2.5-flash"
	defaultImageModel  = "imagen-4.0-generate-001"
	defaultVideoModel  = "veo-3.0-generate-001"
	defaultSpeechModel = "gemini-2.5-flash-tts"

	defaultSpeechVoice = "Kore"
	defaultAspectRatio = "1:1"
	defaultVideoSecs   = 8
)

// PrimaryProvider is the synchronous-plus-polling surface of the primary
// vendor. Video is asynchronous: submission returns the job's poll function.
type PrimaryProvider interface {
	Name() string
	GenerateText(ctx context.Context, model, prompt string) (*providers.TextResult, error)
	GenerateImage(ctx context.Context, model, prompt, aspectRatio, sizeTier string) (*providers.MediaResult, error)
	GenerateSpeech(ctx context.Context, model, text, voice string) (*providers.MediaResult, error)
	StartVideoJob(ctx context.Context, spec providers.VideoJobSpec) (PollFunc, error)
}

// SecondaryProvider is the fully synchronous fallback vendor.
type SecondaryProvider interface {
	Name() string
	GenerateVideo(ctx context.Context, req providers.FalVideoRequest) (*providers.MediaResult, error)
	GenerateImage(ctx context.Context, model, prompt, aspectRatio, sizeTier string) (*providers.MediaResult, error)
}

// MediaStore persists a generated asset and returns its durable public URL.
type MediaStore interface {
	Persist(ctx context.Context, result *providers.MediaResult, modality models.Modality) (string, error)
}

// Recorder receives one accounting entry per externally observable attempt.
type Recorder interface {
	Record(ctx context.Context, e ledger.Entry)
}

// GoogleAdapter lifts the concrete client's submit-then-poll pair into the
// PrimaryProvider surface.
type GoogleAdapter struct {
	*providers.GoogleClient
}

// StartVideoJob submits the job and exposes its poll method as a PollFunc.
func (a GoogleAdapter) StartVideoJob(ctx context.Context, spec providers.VideoJobSpec) (PollFunc, error) {
	job, err := a.SubmitVideoJob(ctx, spec)
	if err != nil {
		return nil, err
	}
	return job.Poll, nil
}

// Result is the caller-facing outcome of a generation.
type Result struct {
	URL          string                   `json:"url,omitempty"`
	Text         string                   `json:"text,omitempty"`
	Provider     string                   `json:"provider"`
	Model        string                   `json:"model"`
	UsedFallback bool                     `json:"used_fallback"`
	Attempts     []models.ProviderAttempt `json:"-"`
}

// Orchestrator routes creative requests to providers, drives retries,
// polling and the single fallback hop, persists the asset, and accounts
// every attempt in the usage ledger.
type Orchestrator struct {
	primary   PrimaryProvider
	secondary SecondaryProvider
	pricing   *models.PricingTable
	store     MediaStore
	recorder  Recorder
	retry     providers.RetryPolicy
	poller    *Poller
	logger    *utils.Logger
}

// New creates an orchestrator.
func New(primary PrimaryProvider, secondary SecondaryProvider, pricing *models.PricingTable,
	store MediaStore, recorder Recorder, retry providers.RetryPolicy, poller *Poller) *Orchestrator {
	return &Orchestrator{
		primary:   primary,
		secondary: secondary,
		pricing:   pricing,
		store:     store,
		recorder:  recorder,
		retry:     retry,
		poller:    poller,
		logger:    utils.NewLogger("orchestrator"),
	}
}

// Generate executes one creative request end to end. Every externally
// observable attempt, including a validation rejection, lands in the ledger
// exactly once; fallback hops get their own record.
func (o *Orchestrator) Generate(ctx context.Context, req *models.CreativeRequest) (*Result, error) {
	applyDefaults(req)

	if err := validate(req); err != nil {
		o.recorder.Record(ctx, ledger.Entry{
			UserID:       req.UserID,
			OrgID:        req.OrgID,
			Endpoint:     "/v1/generations",
			Operation:    operationFor(req.Modality),
			Model:        req.Model,
			Status:       models.UsageStatusFailed,
			ErrorMessage: err.Error(),
		})
		return nil, err
	}

	switch req.Modality {
	case models.ModalityText:
		return o.generateText(ctx, req)
	case models.ModalityImage:
		return o.generateImage(ctx, req)
	case models.ModalitySpeech:
		return o.generateSpeech(ctx, req)
	case models.ModalityVideo:
		return o.generateVideo(ctx, req)
	default:
		return nil, &ValidationError{Message: "unsupported modality: " + string(req.Modality)}
	}
}

func applyDefaults(req *models.CreativeRequest) {
	if req.AspectRatio == "" {
		req.AspectRatio = defaultAspectRatio
	}
	if req.Quality == "" {
		req.Quality = models.QualityStandard
	}
	if req.Model == "" {
		switch req.Modality {
		case models.ModalityText:
			req.Model = defaultTextModel
		case models.ModalityImage:
			req.Model = defaultImageModel
		case models.ModalityVideo:
			req.Model = defaultVideoModel
		case models.ModalitySpeech:
			req.Model = defaultSpeechModel
		}
	}
	if req.Modality == models.ModalityVideo && req.DurationSeconds == 0 {
		req.DurationSeconds = defaultVideoSecs
	}
}

func validate(req *models.CreativeRequest) error {
	if req.Prompt == "" {
		return &ValidationError{Message: "prompt is required"}
	}
	switch req.Modality {
	case models.ModalityText, models.ModalityImage, models.ModalityVideo, models.ModalitySpeech:
	default:
		return &ValidationError{Message: "unsupported modality: " + string(req.Modality)}
	}
	if !models.SupportedAspectRatios[req.AspectRatio] {
		return &ValidationError{Message: "unsupported aspect ratio: " + req.AspectRatio}
	}
	if req.DurationSeconds < 0 {
		return &ValidationError{Message: "duration must not be negative"}
	}
	if req.Quality != models.QualityStandard && req.Quality != models.QualityPro {
		return &ValidationError{Message: "unsupported quality tier: " + string(req.Quality)}
	}
	return nil
}

func (o *Orchestrator) generateText(ctx context.Context, req *models.CreativeRequest) (*Result, error) {
	started := time.Now()

	var text *providers.TextResult
	err := o.retry.Execute(ctx, func() error {
		var callErr error
		text, callErr = o.primary.GenerateText(ctx, req.Model, req.Prompt)
		return callErr
	})

	entry := o.entryFor(req, o.primary.Name(), started)
	if err != nil {
		entry.Status = models.UsageStatusFailed
		entry.ErrorMessage = err.Error()
		o.recorder.Record(ctx, entry)
		return nil, err
	}

	entry.Usage = models.Usage{InputTokens: text.InputTokens, OutputTokens: text.OutputTokens}
	o.recorder.Record(ctx, entry)

	return &Result{
		Text:     text.Text,
		Provider: o.primary.Name(),
		Model:    req.Model,
		Attempts: []models.ProviderAttempt{attempt(o.primary.Name(), req.Model, started, models.OutcomeSuccess, "")},
	}, nil
}

func (o *Orchestrator) generateSpeech(ctx context.Context, req *models.CreativeRequest) (*Result, error) {
	started := time.Now()

	var media *providers.MediaResult
	err := o.retry.Execute(ctx, func() error {
		var callErr error
		media, callErr = o.primary.GenerateSpeech(ctx, req.Model, req.Prompt, defaultSpeechVoice)
		return callErr
	})

	entry := o.entryFor(req, o.primary.Name(), started)
	if err != nil {
		entry.Status = models.UsageStatusFailed
		entry.ErrorMessage = err.Error()
		o.recorder.Record(ctx, entry)
		return nil, err
	}

	entry.Usage = models.Usage{AudioDurationSeconds: media.DurationSeconds}
	return o.finish(ctx, req, entry, media, o.primary.Name(), started, false)
}

func (o *Orchestrator) generateImage(ctx context.Context, req *models.CreativeRequest) (*Result, error) {
	started := time.Now()
	tier := imageTier(req.Quality)

	// Image routing follows the pricing rule's provider. There is no image
	// fallback: the two vendors' image models are not interchangeable.
	provider := o.primary.Name()
	call := func() (*providers.MediaResult, error) {
		return o.primary.GenerateImage(ctx, req.Model, req.Prompt, req.AspectRatio, tier)
	}
	if rule, ok := o.pricing.Rule(req.Model); ok && rule.Provider == o.secondary.Name() {
		provider = o.secondary.Name()
		call = func() (*providers.MediaResult, error) {
			return o.secondary.GenerateImage(ctx, req.Model, req.Prompt, req.AspectRatio, tier)
		}
	}

	var media *providers.MediaResult
	err := o.retry.Execute(ctx, func() error {
		var callErr error
		media, callErr = call()
		return callErr
	})

	entry := o.entryFor(req, provider, started)
	if err != nil {
		entry.Status = models.UsageStatusFailed
		entry.ErrorMessage = err.Error()
		o.recorder.Record(ctx, entry)
		return nil, err
	}

	entry.Usage = models.Usage{ImageCount: media.ImageCount, ImageSizeTier: media.SizeTier}
	return o.finish(ctx, req, entry, media, provider, started, false)
}

func (o *Orchestrator) generateVideo(ctx context.Context, req *models.CreativeRequest) (*Result, error) {
	if !isPrimaryEngine(req.Model) {
		return o.videoOnSecondary(ctx, req, req.Model, nil)
	}

	started := time.Now()
	spec := providers.VideoJobSpec{
		Model:        req.Model,
		Prompt:       req.Prompt,
		AspectRatio:  req.AspectRatio,
		DurationSecs: req.DurationSeconds,
		Resolution:   videoResolution(req.Quality),
	}
	if req.HasReference() {
		ref := req.Reference[0]
		spec.ReferenceImage = ref.Bytes
		spec.ReferenceMIME = ref.ContentType
	}

	media, err := o.poller.SubmitAndAwait(ctx, func(ctx context.Context) (PollFunc, error) {
		return o.primary.StartVideoJob(ctx, spec)
	})

	entry := o.entryFor(req, o.primary.Name(), started)
	switch {
	case err == nil:
		entry.Usage = models.Usage{VideoDurationSeconds: media.DurationSeconds}
		return o.finish(ctx, req, entry, media, o.primary.Name(), started, false)

	case errors.Is(err, ErrPollTimeout):
		// The job is likely still rendering server-side. Falling back would
		// double-bill, so a timeout is terminal.
		entry.Status = models.UsageStatusFailed
		entry.ErrorMessage = err.Error()
		o.recorder.Record(ctx, entry)
		return nil, err

	default:
		entry.Status = models.UsageStatusFailed
		entry.ErrorMessage = err.Error()
		o.recorder.Record(ctx, entry)

		o.logger.Warn("Primary video engine failed, falling back",
			"model", req.Model, "error", err)
		failed := attempt(o.primary.Name(), req.Model, started, models.OutcomeFatalError, err.Error())
		return o.videoOnSecondary(ctx, req, req.Model, []models.ProviderAttempt{failed})
	}
}

// videoOnSecondary runs the synchronous vendor with translated parameters.
// A non-empty prior trace marks this call as the single fallback hop.
func (o *Orchestrator) videoOnSecondary(ctx context.Context, req *models.CreativeRequest,
	model string, prior []models.ProviderAttempt) (*Result, error) {
	started := time.Now()
	fallback := len(prior) > 0

	falReq := providers.FalVideoRequest{
		Model:         model,
		Prompt:        req.Prompt,
		AspectRatio:   translateAspectRatio(req.AspectRatio),
		DurationSecs:  bucketDuration(model, req.DurationSeconds),
		GenerateAudio: generatesAudio(model),
	}
	if req.HasReference() {
		falReq.ImageURL = referenceURL(req.Reference[0])
	}

	media, err := o.secondary.GenerateVideo(ctx, falReq)

	entry := o.entryFor(req, o.secondary.Name(), started)
	entry.Model = model
	if fallback {
		entry.Metadata = models.JSONB{"fallback": true}
	}
	if err != nil {
		entry.Status = models.UsageStatusFailed
		entry.ErrorMessage = err.Error()
		o.recorder.Record(ctx, entry)
		return nil, err
	}

	entry.Usage = models.Usage{VideoDurationSeconds: media.DurationSeconds}
	result, err := o.finishEntry(ctx, req, entry, media)
	if err != nil {
		return nil, err
	}

	result.Provider = o.secondary.Name()
	result.Model = model
	result.UsedFallback = fallback
	result.Attempts = append(prior, attempt(o.secondary.Name(), model, started, models.OutcomeSuccess, ""))
	return result, nil
}

// finish persists the media, records the attempt and assembles the result.
// A persistence failure keeps the attempt's usage quantities in the record,
// since the provider already billed the work, but marks it failed.
func (o *Orchestrator) finish(ctx context.Context, req *models.CreativeRequest, entry ledger.Entry,
	media *providers.MediaResult, provider string, started time.Time, usedFallback bool) (*Result, error) {
	result, err := o.finishEntry(ctx, req, entry, media)
	if err != nil {
		return nil, err
	}

	result.Provider = provider
	result.Model = entry.Model
	result.UsedFallback = usedFallback
	result.Attempts = []models.ProviderAttempt{attempt(provider, entry.Model, started, models.OutcomeSuccess, "")}
	return result, nil
}

func (o *Orchestrator) finishEntry(ctx context.Context, req *models.CreativeRequest,
	entry ledger.Entry, media *providers.MediaResult) (*Result, error) {
	url, err := o.store.Persist(ctx, media, req.Modality)
	if err != nil {
		perr := &PersistenceError{Err: err}
		entry.Status = models.UsageStatusFailed
		entry.ErrorMessage = perr.Error()
		o.recorder.Record(ctx, entry)
		return nil, perr
	}

	o.recorder.Record(ctx, entry)
	return &Result{URL: url}, nil
}

// entryFor seeds a ledger entry for one provider attempt; the caller fills
// in usage or failure details.
func (o *Orchestrator) entryFor(req *models.CreativeRequest, provider string, started time.Time) ledger.Entry {
	return ledger.Entry{
		UserID:    req.UserID,
		OrgID:     req.OrgID,
		Endpoint:  "/v1/generations",
		Operation: operationFor(req.Modality),
		Provider:  provider,
		Model:     req.Model,
		LatencyMs: time.Since(started).Milliseconds(),
		Status:    models.UsageStatusSuccess,
	}
}

func attempt(provider, model string, started time.Time, outcome models.AttemptOutcome, errMsg string) models.ProviderAttempt {
	return models.ProviderAttempt{
		Provider:  provider,
		Model:     model,
		StartedAt: started,
		Outcome:   outcome,
		Error:     errMsg,
	}
}

func operationFor(m models.Modality) models.Operation {
	switch m {
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

func imageTier(q models.QualityTier) string {
	if q == models.QualityPro {
		return "2K"
	}
	return "1K"
}

func videoResolution(q models.QualityTier) string {
	if q == models.QualityPro {
		return "1080p"
	}
	return "720p"
}

// referenceURL turns a reference asset into something the synchronous vendor
// can fetch: a caller-supplied URL directly, inline bytes as a data URI.
func referenceURL(ref models.ReferenceMedia) string {
	if ref.URL != "" {
		return ref.URL
	}
	if len(ref.Bytes) == 0 {
		return ""
	}
	contentType := ref.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(ref.Bytes))
}
