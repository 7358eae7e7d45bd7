package domain

// Auth records where an account's credential lives. The credential itself is
// never written to the accounts file.
type Auth struct {
	// SecretRef is a secret-store key in "bottingctl://account/<id>/credential" form.
	SecretRef string
}

// Configured reports whether a credential has been stored for the account.
func (a Auth) Configured() bool {
	return a.SecretRef != ""
}
