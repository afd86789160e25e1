package domain

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestValidationRequiredTitle(t *testing.T) {
	tests := []struct {
		name  string
		title *string
		fail  bool
	}{
		{name: "missing", title: nil, fail: true},
		{name: "empty", title: strPtr(""), fail: true},
		{name: "whitespace", title: strPtr("   \t"), fail: true},
		{name: "present", title: strPtr("Buy milk"), fail: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Validation
			v.RequiredTitle(tt.title)
			err := v.Err()
			if (err != nil) != tt.fail {
				t.Fatalf("unexpected result: %v", err)
			}
			if !tt.fail {
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			fe := verr.Errors[0]
			if fe.Msg != MsgTitleRequired || fe.Path != "title" || fe.Param != "title" || fe.Location != LocationBody {
				t.Fatalf("unexpected field error: %+v", fe)
			}
		})
	}
}

func TestValidationCollectsAllErrors(t *testing.T) {
	var v Validation
	v.ID("nope")
	v.OptionalTitle(strPtr(" "))

	var verr *ValidationError
	if !errors.As(v.Err(), &verr) {
		t.Fatal("expected validation error")
	}
	if len(verr.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(verr.Errors))
	}
	if verr.Errors[0].Msg != MsgInvalidID || verr.Errors[0].Location != LocationParams {
		t.Fatalf("unexpected id error: %+v", verr.Errors[0])
	}
	if verr.Errors[1].Msg != MsgTitleEmpty {
		t.Fatalf("unexpected title error: %+v", verr.Errors[1])
	}
}

func TestValidationOptionalTitleAbsent(t *testing.T) {
	var v Validation
	v.ID(NewID())
	v.OptionalTitle(nil)
	if err := v.Err(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidationIDReturnsCanonicalForm(t *testing.T) {
	var v Validation
	if got := v.ID("64CBBEF2F89A1A00124567AB"); got != "64cbbef2f89a1a00124567ab" {
		t.Fatalf("expected lower-case id, got %q", got)
	}
	if err := v.Err(); err != nil {
		t.Fatalf("expected upper-case id to be valid, got %v", err)
	}
}

func TestValidationNullTitle(t *testing.T) {
	var v Validation
	v.NullTitle()

	var verr *ValidationError
	if !errors.As(v.Err(), &verr) {
		t.Fatal("expected validation error")
	}
	fe := verr.Errors[0]
	if fe.Msg != MsgTitleEmpty || fe.Path != "title" || fe.Location != LocationBody || fe.Value != nil {
		t.Fatalf("unexpected field error: %+v", fe)
	}
}
