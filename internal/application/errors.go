package application

import "errors"

var (
	ErrAlreadyRunning      = errors.New("a session is already running")
	ErrNotRunning          = errors.New("no session is running")
	ErrValidation          = errors.New("invalid command")
	ErrAccountInSession    = errors.New("account is already part of the session")
	ErrAccountNotInSession = errors.New("account is not part of the session")
	ErrPlayerDisconnect    = errors.New("player accounts cannot be disconnected")
	ErrUnknownAction       = errors.New("unknown account action")
	ErrProcessNotFound     = errors.New("client process did not appear")
)
