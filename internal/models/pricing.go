package models

import (
	"math"

	"creative_gateway/internal/utils"
)

// defaultImageTier is the resolution tier assumed when a rule has no entry
// for the requested tier.
const defaultImageTier = "1K"

// defaultImageCents is the last-resort per-image rate when a rule has no
// entry for the default tier either.
const defaultImageCents = 4.0

// PricingRule maps a model to its provider and rate. Exactly one of the rate
// groups is populated, matching the model's pricing unit:
// per-million-token rates, per-image rates bucketed by resolution tier, or a
// per-second rate for video and audio.
type PricingRule struct {
	Provider string

	// Rates are in USD cents.
	InputCentsPerMillionTokens  float64
	OutputCentsPerMillionTokens float64
	CentsPerImageBySizeTier     map[string]float64
	CentsPerSecond              float64
}

// Usage carries the quantities a completed (or failed) attempt consumed.
// Zero fields are skipped during costing.
type Usage struct {
	InputTokens          int
	OutputTokens         int
	ImageCount           int
	ImageSizeTier        string
	VideoDurationSeconds float64
	AudioDurationSeconds float64
}

// PricingTable is the process-wide static registry of pricing rules, loaded
// once at startup and immutable thereafter.
type PricingTable struct {
	rules  map[string]PricingRule
	logger *utils.Logger
}

// NewPricingTable builds a table from an explicit rule set.
func NewPricingTable(rules map[string]PricingRule) *PricingTable {
	return &PricingTable{
		rules:  rules,
		logger: utils.NewLogger("pricing"),
	}
}

// Rule returns the pricing rule for a model, if registered.
func (t *PricingTable) Rule(modelID string) (PricingRule, bool) {
	rule, ok := t.rules[modelID]
	return rule, ok
}

// Cost computes the estimated cost of an attempt in USD cents, rounded to two
// decimal places. Terms whose quantities are absent from usage are skipped.
// An unknown model costs 0 and logs a warning; pricing must never block a
// generation response.
func (t *PricingTable) Cost(modelID string, usage Usage) float64 {
	rule, ok := t.rules[modelID]
	if !ok {
		t.logger.Warn("No pricing rule for model, recording zero cost", "model", modelID)
		return 0
	}

	cents := 0.0

	if usage.InputTokens > 0 {
		cents += float64(usage.InputTokens) * rule.InputCentsPerMillionTokens / 1e6
	}
	if usage.OutputTokens > 0 {
		cents += float64(usage.OutputTokens) * rule.OutputCentsPerMillionTokens / 1e6
	}
	if usage.ImageCount > 0 {
		cents += float64(usage.ImageCount) * t.imageRate(rule, usage.ImageSizeTier)
	}
	if usage.VideoDurationSeconds > 0 {
		cents += usage.VideoDurationSeconds * rule.CentsPerSecond
	}
	if usage.AudioDurationSeconds > 0 {
		cents += usage.AudioDurationSeconds * rule.CentsPerSecond
	}

	// Rounded again to a whole cent at persistence time; the sub-cent drift
	// from the double rounding is accepted billing behavior.
	return math.Round(cents*100) / 100
}

// imageRate resolves a per-image rate, falling back to the default tier and
// then to a fixed default rate.
func (t *PricingTable) imageRate(rule PricingRule, tier string) float64 {
	if rule.CentsPerImageBySizeTier == nil {
		return defaultImageCents
	}
	if rate, ok := rule.CentsPerImageBySizeTier[tier]; ok {
		return rate
	}
	if rate, ok := rule.CentsPerImageBySizeTier[defaultImageTier]; ok {
		return rate
	}
	return defaultImageCents
}

// DefaultPricingTable returns the rule set for the models the gateway routes.
func DefaultPricingTable() *PricingTable {
	return NewPricingTable(map[string]PricingRule{
		// Google text models, priced per million tokens.
		"gemini-2.5-flash": {
			Provider:                    "google",
			InputCentsPerMillionTokens:  30,
			OutputCentsPerMillionTokens: 250,
		},
		"gemini-2.5-pro": {
			Provider:                    "google",
			InputCentsPerMillionTokens:  125,
			OutputCentsPerMillionTokens: 1000,
		},

		// Google image model, priced per generated image by resolution tier.
		"imagen-4.0-generate-001": {
			Provider: "google",
			CentsPerImageBySizeTier: map[string]float64{
				"1K": 4,
				"2K": 8,
			},
		},

		// Google video engines, priced per generated second.
		"veo-3.0-generate-001": {
			Provider:       "google",
			CentsPerSecond: 40,
		},
		"veo-3.0-fast-generate-001": {
			Provider:       "google",
			CentsPerSecond: 15,
		},

		// Google speech synthesis, priced per second of audio.
		"gemini-2.5-flash-tts": {
			Provider:       "google",
			CentsPerSecond: 2,
		},

		// fal.ai models.
		"kling-v2.1": {
			Provider:       "fal",
			CentsPerSecond: 5,
		},
		"sora-2": {
			Provider:       "fal",
			CentsPerSecond: 10,
		},
		"flux-pro-v1.1": {
			Provider: "fal",
			CentsPerImageBySizeTier: map[string]float64{
				"1K": 4,
			},
		},
	})
}
