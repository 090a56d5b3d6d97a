package conversation

import "errors"

// Local rejections. None of them reach the network.
var (
	ErrEmptyMessage         = errors.New("message is empty")
	ErrClientPhoneMissing   = errors.New("client has no phone number")
	ErrOperatorPhoneMissing = errors.New("no phone number is assigned to you")
	ErrSendInProgress       = errors.New("a message is already being sent")

	ErrSubjectRequired    = errors.New("subject is required")
	ErrClientEmailMissing = errors.New("client has no email address")
	ErrEmptyChain         = errors.New("no thread to reply to")
	ErrReplyTargetMissing = errors.New("last message in thread has no id")
)

// SendError wraps a backend failure. The input that was being sent is
// kept, so the operation can be retried as is.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return "send failed: " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }

// Retryable is always true; validation problems are reported with the
// sentinel errors instead.
func (e *SendError) Retryable() bool { return true }

// IsValidation reports whether err is a local rejection.
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrEmptyMessage, ErrClientPhoneMissing, ErrOperatorPhoneMissing,
		ErrSubjectRequired, ErrClientEmailMissing, ErrEmptyChain, ErrReplyTargetMissing,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
