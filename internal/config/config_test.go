package config

import "testing"

func TestLoadIncludesEngineDefaults(t *testing.T) {
	t.Setenv("IDENTIFY_MIN_TOKENS", "")
	t.Setenv("IDENTIFY_PR_CARD_THRESHOLD", "")
	t.Setenv("IDENTIFY_NAME_MATCH_THRESHOLD", "")
	t.Setenv("REMOTE_OCR_CONFIDENCE_FLOOR", "")

	cfg := Load()
	if cfg.MinTokens != 5 {
		t.Fatalf("expected default min tokens 5, got %d", cfg.MinTokens)
	}
	if cfg.PRCardThreshold != 0.55 {
		t.Fatalf("expected default pr card threshold 0.55, got %v", cfg.PRCardThreshold)
	}
	if cfg.NameMatchThreshold != 0.75 {
		t.Fatalf("expected default name match threshold 0.75, got %v", cfg.NameMatchThreshold)
	}
	if cfg.RemoteOCRConfidenceFloor != 0.60 {
		t.Fatalf("expected default remote ocr floor 0.60, got %v", cfg.RemoteOCRConfidenceFloor)
	}
}

func TestLoadParsesEngineOverrides(t *testing.T) {
	t.Setenv("IDENTIFY_MIN_TOKENS", "8")
	t.Setenv("IDENTIFY_PR_CARD_THRESHOLD", "0.7")
	t.Setenv("REMOTE_OCR_API_KEY", "test-key")

	cfg := Load()
	if cfg.MinTokens != 8 {
		t.Fatalf("expected min tokens 8, got %d", cfg.MinTokens)
	}
	if cfg.PRCardThreshold != 0.7 {
		t.Fatalf("expected pr card threshold 0.7, got %v", cfg.PRCardThreshold)
	}
	if cfg.RemoteOCRAPIKey != "test-key" {
		t.Fatalf("expected remote ocr key override, got %q", cfg.RemoteOCRAPIKey)
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := Load()
	cfg.PRCardThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for threshold > 1")
	}
}

func TestValidateRejectsBadRemoteURLWhenKeySet(t *testing.T) {
	cfg := Load()
	cfg.RemoteOCRAPIKey = "key"
	cfg.RemoteOCRURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for malformed remote ocr url")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Load().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}
