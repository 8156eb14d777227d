// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

type testRequest struct {
	Title  string `json:"user_input" validate:"notblank,max=20"`
	Letter string `json:"letter" validate:"letterfilter"`
	Offset int    `query:"offset" validate:"min=0"`
	Limit  int    `validate:"min=1,max=100"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     testRequest
		wantField string
		wantTag   string
	}{
		{"valid", testRequest{Title: "Dune", Letter: "D", Limit: 10}, "", ""},
		{"valid all letters", testRequest{Title: "Dune", Letter: "ALL", Limit: 10}, "", ""},
		{"valid empty letter", testRequest{Title: "Dune", Limit: 10}, "", ""},
		{"valid unicode letter", testRequest{Title: "Émile", Letter: "É", Limit: 10}, "", ""},
		{"blank title", testRequest{Title: "   ", Limit: 10}, "user_input", "notblank"},
		{"long title", testRequest{Title: strings.Repeat("x", 21), Limit: 10}, "user_input", "max"},
		{"two letters", testRequest{Title: "Dune", Letter: "ab", Limit: 10}, "letter", "letterfilter"},
		{"punctuation letter", testRequest{Title: "Dune", Letter: "%", Limit: 10}, "letter", "letterfilter"},
		{"negative offset", testRequest{Title: "Dune", Offset: -1, Limit: 10}, "offset", "min"},
		{"zero limit", testRequest{Title: "Dune"}, "Limit", "min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			fe := err.Errors()[0]
			if fe.Field() != tt.wantField || fe.Tag() != tt.wantTag {
				t.Errorf("field/tag = %s/%s, want %s/%s", fe.Field(), fe.Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&testRequest{Title: "", Letter: "xy", Limit: 500})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != CodeValidationFailed {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if len(apiErr.Fields) != 3 {
		t.Fatalf("Fields = %+v, want 3 entries", apiErr.Fields)
	}
	for _, want := range []string{"user_input must not be blank", "letter must be a single letter", "Limit must be at most 100"} {
		if !strings.Contains(apiErr.Message, want) {
			t.Errorf("Message %q does not mention %q", apiErr.Message, want)
		}
	}
}
