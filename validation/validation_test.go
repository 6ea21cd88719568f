package validation

import (
	"strings"
	"testing"

	"github.com/openturf/turfkit/errors"
)

type sampleConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Retries int    `mapstructure:"retries" validate:"gte=0,lte=10"`
	Level   string `mapstructure:"level" validate:"omitempty,oneof=low normal high"`
}

func TestValidate_Valid(t *testing.T) {
	cfg := sampleConfig{BaseURL: "https://api.openturf.dev", Retries: 3, Level: "high"}
	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	err := Validate(sampleConfig{Retries: 3})
	if err == nil {
		t.Fatal("expected error")
	}

	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	if !strings.Contains(appErr.Message, "base_url") {
		t.Errorf("expected base_url in message, got %s", appErr.Message)
	}
}

func TestValidate_RangeAndOneof(t *testing.T) {
	err := Validate(sampleConfig{BaseURL: "https://api.openturf.dev", Retries: 99, Level: "urgent"})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "retries") {
		t.Errorf("expected retries error, got %s", msg)
	}
	if !strings.Contains(msg, "level") {
		t.Errorf("expected level error, got %s", msg)
	}
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{
		"BaseURL":   "base_u_r_l",
		"Retries":   "retries",
		"MaxJitter": "max_jitter",
	}
	for in, want := range cases {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%s): expected %s, got %s", in, want, got)
		}
	}
}
