package campaign

import "errors"

// Sentinel errors for the campaign service layer. Handlers map these to
// user-visible responses; anything else is an internal error.
var (
	ErrNotFound       = errors.New("campaign not found")
	ErrNotSendable    = errors.New("campaign cannot be sent in its current state")
	ErrNotEditable    = errors.New("only draft campaigns can be modified")
	ErrScheduleInPast = errors.New("scheduled time must be in the future")
	ErrBadCategory    = errors.New("unknown statistics category")
)
