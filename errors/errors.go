package errors

import "fmt"

var (
	ErrNotAMember           = fmt.Errorf("not a member of this chat")
	ErrEmptyMessage         = fmt.Errorf("message has no text and no media")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrMessageStorage       = fmt.Errorf("failed to store message")
	ErrTargetOffline        = fmt.Errorf("user is offline")
	ErrNoSuchCall           = fmt.Errorf("no call in progress with this user")
	ErrInvalidTransition    = fmt.Errorf("call transition not allowed")
	ErrUnknownEvent         = fmt.Errorf("unknown event")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrEmptyWords           = fmt.Errorf("no censored words loaded")
)
