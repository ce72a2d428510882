package config

import (
	"strings"
	"testing"
)

// Test struct for the custom env validator.
type EnvTestStruct struct {
	Environment string `validate:"env"`
}

func TestValidateEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		expected bool
	}{
		{"development", "development", true},
		{"staging", "staging", true},
		{"production", "production", true},
		{"empty", "", false},
		{"unknown", "testing", false},
		{"case sensitive", "Production", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := EnvTestStruct{Environment: tt.env}
			err := validate.Struct(s)
			if tt.expected && err != nil {
				t.Errorf("expected valid, got error: %v", err)
			}
			if !tt.expected && err == nil {
				t.Errorf("expected invalid for env %q, got valid", tt.env)
			}
		})
	}
}

func TestValidateWithDetails_FieldMessages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "trace"
	cfg.Processing.ConfidenceThreshold = 2.0

	err := ValidateWithDetails(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}

	details, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(details), details)
	}

	msg := details.Error()
	if !strings.Contains(msg, "must be one of") {
		t.Errorf("expected oneof message in %q", msg)
	}
	if !strings.Contains(msg, "less than or equal to") {
		t.Errorf("expected lte message in %q", msg)
	}
}

func TestValidateWithDetails_Valid(t *testing.T) {
	if err := ValidateWithDetails(DefaultConfig()); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestConfigError_Error(t *testing.T) {
	e := ConfigError{Field: "llm.provider", Message: "must be one of [ollama openai]", Value: "bad"}
	msg := e.Error()
	if !strings.Contains(msg, "llm.provider") || !strings.Contains(msg, "bad") {
		t.Errorf("unexpected error message: %s", msg)
	}
}
