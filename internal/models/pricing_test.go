package models

import "testing"

func TestPricingTable_Cost(t *testing.T) {
	table := DefaultPricingTable()

	tests := []struct {
		name  string
		model string
		usage Usage
		want  float64
	}{
		{
			name:  "text tokens per million",
			model: "gemini-2.5-flash",
			usage: Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
			want:  280, // 30 + 250
		},
		{
			name:  "fractional token cost rounds to 2 decimals",
			model: "gemini-2.5-flash",
			usage: Usage{InputTokens: 1500, OutputTokens: 200},
			want:  0.1, // 0.045 + 0.05 = 0.095 -> 0.1
		},
		{
			name:  "image by size tier",
			model: "imagen-4.0-generate-001",
			usage: Usage{ImageCount: 2, ImageSizeTier: "2K"},
			want:  16,
		},
		{
			name:  "unknown tier falls back to 1K",
			model: "imagen-4.0-generate-001",
			usage: Usage{ImageCount: 1, ImageSizeTier: "4K"},
			want:  4,
		},
		{
			name:  "video per second",
			model: "veo-3.0-generate-001",
			usage: Usage{VideoDurationSeconds: 8},
			want:  320,
		},
		{
			name:  "speech per second",
			model: "gemini-2.5-flash-tts",
			usage: Usage{AudioDurationSeconds: 3.5},
			want:  7,
		},
		{
			name:  "zero usage costs nothing",
			model: "gemini-2.5-flash",
			usage: Usage{},
			want:  0,
		},
		{
			name:  "unknown model costs nothing",
			model: "no-such-model",
			usage: Usage{InputTokens: 1_000_000},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Cost(tt.model, tt.usage)
			if got != tt.want {
				t.Errorf("Cost(%s) = %v, want %v", tt.model, got, tt.want)
			}
			if got < 0 {
				t.Errorf("cost must never be negative, got %v", got)
			}
		})
	}
}

func TestPricingTable_CostDeterministic(t *testing.T) {
	table := DefaultPricingTable()
	usage := Usage{InputTokens: 12345, OutputTokens: 6789}

	first := table.Cost("gemini-2.5-pro", usage)
	for i := 0; i < 10; i++ {
		if got := table.Cost("gemini-2.5-pro", usage); got != first {
			t.Fatalf("cost is not deterministic: %v != %v", got, first)
		}
	}
}

func TestPricingTable_Rule(t *testing.T) {
	table := DefaultPricingTable()

	rule, ok := table.Rule("kling-v2.1")
	if !ok {
		t.Fatal("expected rule for kling-v2.1")
	}
	if rule.Provider != "fal" {
		t.Errorf("expected fal provider, got %q", rule.Provider)
	}

	if _, ok := table.Rule("no-such-model"); ok {
		t.Error("expected no rule for unknown model")
	}
}
