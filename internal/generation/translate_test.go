package generation

import "testing"

func TestTranslateAspectRatio(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"16:9", "16:9"},
		{"9:16", "9:16"},
		{"1:1", "1:1"},
		{"21:9", "1:1"}, // unmapped ratios default to square
		{"", "1:1"},
	}

	for _, tt := range tests {
		if got := translateAspectRatio(tt.in); got != tt.want {
			t.Errorf("translateAspectRatio(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBucketDuration(t *testing.T) {
	tests := []struct {
		model     string
		requested int
		want      int
	}{
		{"veo-3.0-generate-001", 3, 4},
		{"veo-3.0-generate-001", 4, 4},
		{"veo-3.0-generate-001", 5, 6},
		{"veo-3.0-generate-001", 7, 8},
		{"veo-3.0-generate-001", 30, 8}, // capped at the longest bucket
		{"kling-v2.1", 5, 5},
		{"kling-v2.1", 6, 10},
		{"kling-v2.1", 60, 10},
		// sora renders a fixed twelve seconds regardless of the request
		{"sora-2", 5, 12},
		{"sora-2", 20, 12},
		// unknown models pass the request through untouched
		{"mystery-model", 7, 7},
	}

	for _, tt := range tests {
		if got := bucketDuration(tt.model, tt.requested); got != tt.want {
			t.Errorf("bucketDuration(%q, %d) = %d, want %d", tt.model, tt.requested, got, tt.want)
		}
	}
}

func TestGeneratesAudio(t *testing.T) {
	if !generatesAudio("veo-3.0-generate-001") {
		t.Error("veo models should request an audio track")
	}
	if generatesAudio("kling-v2.1") {
		t.Error("kling does not support audio generation")
	}
	if generatesAudio("unknown-model") {
		t.Error("unknown models should not request audio")
	}
}

func TestIsPrimaryEngine(t *testing.T) {
	if !isPrimaryEngine("veo-3.0-fast-generate-001") {
		t.Error("veo models belong to the primary engine")
	}
	if isPrimaryEngine("kling-v2.1") {
		t.Error("kling is not a primary engine model")
	}
}
