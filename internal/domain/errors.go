package domain

import "errors"

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrSecretNotFound   = errors.New("secret not found")
	ErrInvalidAccountID = errors.New("invalid account id")
	ErrNoCredential     = errors.New("account has no stored credential")
)

var ErrNoSnapshot = errors.New("no session snapshot recorded")
