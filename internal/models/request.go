package models

import "time"

// Modality is the kind of content a request asks for.
type Modality string

const (
	ModalityText   Modality = "text"
	ModalityImage  Modality = "image"
	ModalityVideo  Modality = "video"
	ModalitySpeech Modality = "speech"
)

// QualityTier selects between the cheaper and the premium rendering path.
type QualityTier string

const (
	QualityStandard QualityTier = "standard"
	QualityPro      QualityTier = "pro"
)

// SupportedAspectRatios is the set of ratios callers may request.
// Anything else is rejected at validation time.
var SupportedAspectRatios = map[string]bool{
	"1:1":  true,
	"16:9": true,
	"9:16": true,
	"4:3":  true,
	"3:4":  true,
}

// ReferenceMedia is an input asset conditioning the generation,
// either inline bytes or a URL the provider can fetch.
type ReferenceMedia struct {
	Bytes       []byte
	ContentType string
	URL         string
}

// CreativeRequest is the provider-neutral generation request handed to the
// orchestrator. It is immutable once submitted; the orchestrator never
// persists it, only the usage trace it produces.
type CreativeRequest struct {
	Modality        Modality
	Prompt          string
	AspectRatio     string
	Quality         QualityTier
	DurationSeconds int // video only; requested, not guaranteed
	Reference       []ReferenceMedia
	Model           string // model hint used for provider routing

	// Attribution only; authorization happens upstream.
	UserID string
	OrgID  string
}

// HasReference reports whether the request carries at least one usable
// reference asset (switches video generation to the image-conditioned variant).
func (r *CreativeRequest) HasReference() bool {
	for _, m := range r.Reference {
		if len(m.Bytes) > 0 || m.URL != "" {
			return true
		}
	}
	return false
}

// AttemptOutcome classifies how a single provider attempt ended.
type AttemptOutcome string

const (
	OutcomeSuccess        AttemptOutcome = "success"
	OutcomeTransientError AttemptOutcome = "transient-error"
	OutcomeFatalError     AttemptOutcome = "fatal-error"
	OutcomeTimeout        AttemptOutcome = "timeout"
)

// ProviderAttempt is one entry in a request's execution trace. Ordering is
// significant: it shows whether a fallback hop occurred.
type ProviderAttempt struct {
	Provider  string
	Model     string
	StartedAt time.Time
	Outcome   AttemptOutcome
	Error     string
}
