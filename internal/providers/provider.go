package providers

import "fmt"

// Provider identifiers used in routing, pricing and usage records.
const (
	ProviderGoogle = "google"
	ProviderFal    = "fal"
)

// ProviderError wraps a vendor failure with status metadata so the retry
// policy and the orchestrator can classify it without parsing vendor payloads.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	return fmt.Sprintf("%s: status=%d: %s", e.Provider, e.Status, e.Message)
}

// MediaResult is the normalized "result ready" value produced at every vendor
// boundary. Exactly one of Bytes or URL is set: inline bytes when the vendor
// already returned them (preferred, avoids a second network hop), otherwise a
// remote URL for the media store to download.
type MediaResult struct {
	Bytes       []byte
	ContentType string
	URL         string

	// Quantities for costing.
	ImageCount      int
	SizeTier        string
	DurationSeconds float64
}

// TextResult is a normalized synchronous text completion.
type TextResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// VideoJobSpec describes a long-running video generation job before vendor
// translation.
type VideoJobSpec struct {
	Model          string
	Prompt         string
	AspectRatio    string
	DurationSecs   int
	Resolution     string
	ReferenceImage []byte
	ReferenceMIME  string
}
