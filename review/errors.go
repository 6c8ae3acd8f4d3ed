package review

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrModerationNotConfigured = errors.New("moderation not configured")
	ErrForbidden               = errors.New("forbidden")
	ErrMalformedSubmission     = errors.New("malformed submission")
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrUpstreamUpdateFailed    = errors.New("upstream update failed")
	ErrAuditPostFailed         = errors.New("audit post failed")
	ErrStorageFailure          = errors.New("storage failure")
)

// Error carries a kind, the part of the submission it concerns and the underlying cause.
type Error struct {
	Kind error
	Part string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Part != "" {
		msg += " (" + e.Part + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, part string, err error) *Error {
	return &Error{Kind: kind, Part: part, Err: err}
}

func malformed(part string) *Error {
	return newError(ErrMalformedSubmission, part, nil)
}

// UserMessage renders err as the ephemeral text shown to the moderator.
func UserMessage(err error) string {
	var re *Error
	part := ""
	if errors.As(err, &re) {
		part = re.Part
	}
	switch {
	case errors.Is(err, ErrModerationNotConfigured):
		return "No mod role set"
	case errors.Is(err, ErrForbidden):
		return "Only image moderators are allowed to manage submissions"
	case errors.Is(err, ErrMalformedSubmission):
		if part == "" {
			part = "required fields"
		}
		return fmt.Sprintf("The submission is missing its %s", part)
	case errors.Is(err, ErrSubmissionNotFound):
		return "The pillow submission was not found, it may already have been processed"
	case errors.Is(err, ErrUpstreamUpdateFailed):
		return "An error occurred while updating the message"
	case errors.Is(err, ErrStorageFailure):
		return "A storage error occurred while processing the submission, please try again"
	default:
		return "An error occurred while processing the submission"
	}
}
