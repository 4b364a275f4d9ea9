package config

import "testing"

func validLimits() LimitsConfig {
	return LimitsConfig{
		MaxFiles:      3,
		MaxDepth:      1,
		MaxScan:       30,
		MaxTotalChars: 24000,
		PerDocChars:   8000,
		TopK:          4,
	}
}

func TestLimitsValidate(t *testing.T) {
	t.Parallel()
	if err := validLimits().Validate(); err != nil {
		t.Fatalf("valid limits rejected: %v", err)
	}
}

func TestLimitsValidateRejectsScanBelowFiles(t *testing.T) {
	t.Parallel()
	l := validLimits()
	l.MaxScan = 2 // below MaxFiles
	if err := l.Validate(); err == nil {
		t.Fatal("expected error for max_scan < max_files")
	}
}

func TestLimitsValidateRejectsZeroValues(t *testing.T) {
	t.Parallel()
	for name, mutate := range map[string]func(*LimitsConfig){
		"max_files":       func(l *LimitsConfig) { l.MaxFiles = 0 },
		"max_depth":       func(l *LimitsConfig) { l.MaxDepth = 0 },
		"max_scan":        func(l *LimitsConfig) { l.MaxScan = 0 },
		"max_total_chars": func(l *LimitsConfig) { l.MaxTotalChars = 0 },
		"per_doc_chars":   func(l *LimitsConfig) { l.PerDocChars = -1 },
		"top_k":           func(l *LimitsConfig) { l.TopK = 0 },
	} {
		l := validLimits()
		mutate(&l)
		if err := l.Validate(); err == nil {
			t.Fatalf("expected error when %s is not positive", name)
		}
	}
}

func TestValidateLimitsRequiresShippedProfiles(t *testing.T) {
	t.Parallel()
	err := ValidateLimits(map[string]LimitsConfig{ClientWidget: validLimits()})
	if err == nil {
		t.Fatal("expected error when assistant profile is missing")
	}
	err = ValidateLimits(map[string]LimitsConfig{
		ClientWidget:    validLimits(),
		ClientAssistant: validLimits(),
	})
	if err != nil {
		t.Fatalf("both profiles present, got %v", err)
	}
}

func TestBoxConfigured(t *testing.T) {
	t.Parallel()
	b := BoxConfig{BaseURL: "https://api.box.com/2.0", Token: "tok"}
	if !b.Configured() {
		t.Fatal("expected configured client")
	}
	b.Token = ""
	if b.Configured() {
		t.Fatal("missing token should read as unconfigured")
	}
}
