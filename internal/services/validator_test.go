package services

import (
	"errors"
	"testing"
)

func TestValidator_GenerateRequest(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	valid := []string{
		`{"targetOdd": 5.4}`,
		`{"targetOdd": 1.01, "extra": true}`,
		`{"targetOdd": 1000}`,
	}
	for _, body := range valid {
		if err := v.Validate(SchemaGenerateRequest, []byte(body)); err != nil {
			t.Errorf("%s: unexpected error %v", body, err)
		}
	}

	invalid := []string{
		`{}`,
		`{"targetOdd": "5"}`,
		`{"targetOdd": 1}`,
		`{"targetOdd": 0.5}`,
		`{"targetOdd": 1000.5}`,
		`[5]`,
		`not json`,
	}
	for _, body := range invalid {
		err := v.Validate(SchemaGenerateRequest, []byte(body))
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", body, err)
		}
	}
}

func TestValidator_UnknownSchema(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	if err := v.Validate("nope", []byte(`{}`)); err == nil || errors.Is(err, ErrValidation) {
		t.Errorf("unknown schema should be a plain error, got %v", err)
	}
}
