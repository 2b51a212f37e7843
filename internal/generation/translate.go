package generation

import "strings"

// falAspectRatios maps the gateway's aspect ratios onto the values the
// secondary vendor accepts. Unrecognized ratios default to square.
var falAspectRatios = map[string]string{
	"1:1":  "1:1",
	"16:9": "16:9",
	"9:16": "9:16",
	"4:3":  "4:3",
	"3:4":  "3:4",
}

// falVideoParams describes the secondary vendor's constraints per model
// family: the discrete durations it supports and whether it can generate an
// audio track alongside the video.
type falVideoParams struct {
	Durations []int // ascending
	Audio     bool
}

var falVideoModels = map[string]falVideoParams{
	// The veo family on fal is the fallback target for the primary engine.
	"veo-3.0-generate-001":      {Durations: []int{4, 6, 8}, Audio: true},
	"veo-3.0-fast-generate-001": {Durations: []int{4, 6, 8}, Audio: true},
	"kling-v2.1":                {Durations: []int{5, 10}},
	// sora always renders twelve seconds irrespective of the caller's
	// request; a vendor limitation, not a translation bug.
	"sora-2": {Durations: []int{12}},
}

// translateAspectRatio converts a ratio for the secondary vendor.
func translateAspectRatio(ratio string) string {
	if mapped, ok := falAspectRatios[ratio]; ok {
		return mapped
	}
	return "1:1"
}

// bucketDuration rounds the requested duration up into the model's supported
// set; requests beyond the longest bucket get the longest bucket.
func bucketDuration(model string, requested int) int {
	params, ok := falVideoModels[model]
	if !ok || len(params.Durations) == 0 {
		return requested
	}

	for _, d := range params.Durations {
		if requested <= d {
			return d
		}
	}
	return params.Durations[len(params.Durations)-1]
}

// generatesAudio reports whether the secondary vendor should be asked for an
// audio track for this model.
func generatesAudio(model string) bool {
	return falVideoModels[model].Audio
}

// isPrimaryEngine reports whether the model names the primary vendor's
// rendering engine explicitly.
func isPrimaryEngine(model string) bool {
	return strings.HasPrefix(model, "veo-")
}
