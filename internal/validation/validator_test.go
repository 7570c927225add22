// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package validation

import (
	"strings"
	"testing"
	"time"
)

type voteRequest struct {
	Vote       string `json:"vote" validate:"required,vote_choice"`
	ProposalID string `json:"proposal_id,omitempty" validate:"omitempty,max=8"`
	Reason     string `json:"reason" validate:"max=10"`
}

type openVotingRequest struct {
	Deadline time.Time `json:"deadline" validate:"required,future"`
	Percent  int       `json:"minimum_approval_percentage" validate:"omitempty,gte=1,lte=100"`
}

type memberRequest struct {
	Role      string   `json:"role" validate:"required,member_role"`
	Status    string   `json:"status" validate:"omitempty,member_status"`
	Amenities []string `json:"amenities" validate:"max=2"`
	Internal  string   `json:"-" validate:"max=1"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{"valid vote", &voteRequest{Vote: "yes"}, "", ""},
		{"abstain with proposal", &voteRequest{Vote: "abstain", ProposalID: "p-1"}, "", ""},
		{"missing vote", &voteRequest{}, "vote", "required"},
		{"unknown vote", &voteRequest{Vote: "maybe"}, "vote", "vote_choice"},
		{"long proposal id", &voteRequest{Vote: "no", ProposalID: "123456789"}, "proposal_id", "max"},
		{"valid deadline", &openVotingRequest{Deadline: fixed.Add(time.Hour)}, "", ""},
		{"past deadline", &openVotingRequest{Deadline: fixed.Add(-time.Minute)}, "deadline", "future"},
		{"deadline equal to now", &openVotingRequest{Deadline: fixed}, "deadline", "future"},
		{"threshold out of range", &openVotingRequest{Deadline: fixed.Add(time.Hour), Percent: 101}, "minimum_approval_percentage", "lte"},
		{"valid member", &memberRequest{Role: "secretary", Status: "suspended"}, "", ""},
		{"unknown role", &memberRequest{Role: "chairman"}, "role", "member_role"},
		{"unknown status", &memberRequest{Role: "treasurer", Status: "banned"}, "status", "member_status"},
		{"too many items", &memberRequest{Role: "treasurer", Amenities: []string{"a", "b", "c"}}, "amenities", "max"},
		{"dash tag uses go name", &memberRequest{Role: "treasurer", Internal: "xy"}, "Internal", "max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() expected error")
			}
			got := err.Errors()[0]
			if got.Field() != tt.wantField || got.Tag() != tt.wantTag {
				t.Errorf("failure = %s/%s, want %s/%s", got.Field(), got.Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		apiErr := ValidateStruct(&voteRequest{Vote: "maybe"}).ToAPIError()
		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("code = %s", apiErr.Code)
		}
		if apiErr.Message != "vote must be one of: yes no abstain" {
			t.Errorf("message = %q", apiErr.Message)
		}
		if apiErr.Details["field"] != "vote" || apiErr.Details["value"] != "maybe" {
			t.Errorf("details = %v", apiErr.Details)
		}
	})

	t.Run("multiple", func(t *testing.T) {
		apiErr := ValidateStruct(&voteRequest{Vote: "", Reason: "far too long a reason"}).ToAPIError()
		if !strings.Contains(apiErr.Message, "vote is required") ||
			!strings.Contains(apiErr.Message, "reason must be at most 10 characters") {
			t.Errorf("message = %q", apiErr.Message)
		}
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 2 {
			t.Errorf("details.fields = %v", apiErr.Details["fields"])
		}
	})

	t.Run("empty", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Message != "Validation failed" {
			t.Errorf("message = %q", apiErr.Message)
		}
	})
}

func TestErrorMessages(t *testing.T) {
	type request struct {
		Progress int    `json:"progress" validate:"gte=0,lte=100"`
		Title    string `json:"title" validate:"min=3"`
		Kind     string `json:"kind" validate:"oneof=update notice"`
	}

	err := ValidateStruct(&request{Progress: -1, Title: "ab", Kind: "memo"})
	if err == nil {
		t.Fatal("expected error")
	}
	want := map[string]string{
		"progress": "progress must be greater than or equal to 0",
		"title":    "title must be at least 3 characters",
		"kind":     "kind must be one of: update notice",
	}
	for _, fe := range err.Errors() {
		if fe.Error() != want[fe.Field()] {
			t.Errorf("%s: message = %q, want %q", fe.Field(), fe.Error(), want[fe.Field()])
		}
	}
}
