package services

import "errors"

var (
	ErrDuplicateUser     = errors.New("user already exists")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateTitle    = errors.New("a post with this title already exists")
	ErrUnknownEmail      = errors.New("incorrect email")
	ErrWrongPassword     = errors.New("incorrect password")
	ErrUnknownAuthor     = errors.New("no user with that username")
	ErrEmptyComment      = errors.New("comment text is required")
	ErrNotFound          = errors.New("record not found")
	ErrBlankField        = errors.New("required field is blank")
)

// BlankFieldError reports a required field that is empty once trimmed.
// Field is the form field name, e.g. "Username" or "Title".
type BlankFieldError struct {
	Field string
}

func (e *BlankFieldError) Error() string {
	return e.Field + ": " + ErrBlankField.Error()
}

func (e *BlankFieldError) Is(target error) bool {
	return target == ErrBlankField
}
