package domain

import "strings"

// Validation messages reported to API callers.
const (
	MsgTitleRequired = "Title is required"
	MsgTitleEmpty    = "Title cannot be empty"
	MsgInvalidID     = "Invalid Task ID"
	MsgInvalidBody   = "Invalid request body"
)

// Validation accumulates field errors for a single request.
type Validation struct {
	errs []FieldError
}

func (v *Validation) add(location, path string, value any, msg string) {
	v.errs = append(v.errs, FieldError{
		Type:     "field",
		Value:    value,
		Msg:      msg,
		Path:     path,
		Param:    path,
		Location: location,
	})
}

// ID checks that the path parameter id is a well formed identifier and
// returns its canonical form.
func (v *Validation) ID(id string) string {
	if !ValidID(id) {
		v.add(LocationParams, "id", id, MsgInvalidID)
		return id
	}
	return CanonicalID(id)
}

// RequiredTitle rejects a missing, empty or whitespace-only title.
func (v *Validation) RequiredTitle(title *string) {
	if title == nil {
		v.add(LocationBody, "title", nil, MsgTitleRequired)
		return
	}
	if blank(*title) {
		v.add(LocationBody, "title", *title, MsgTitleRequired)
	}
}

// OptionalTitle rejects a title that is present but blank.
func (v *Validation) OptionalTitle(title *string) {
	if title != nil && blank(*title) {
		v.add(LocationBody, "title", *title, MsgTitleEmpty)
	}
}

// NullTitle rejects a title sent as an explicit null.
func (v *Validation) NullTitle() {
	v.add(LocationBody, "title", nil, MsgTitleEmpty)
}

// Body records an undecodable request body.
func (v *Validation) Body() {
	v.add(LocationBody, "", nil, MsgInvalidBody)
}

// Err returns a *ValidationError when any check failed.
func (v *Validation) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	out := make([]FieldError, len(v.errs))
	copy(out, v.errs)
	return &ValidationError{Errors: out}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
