package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type AccountID int64

func ParseAccountID(raw string) (AccountID, error) {
	trimmed := strings.TrimSpace(raw)
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAccountID, raw)
	}
	return AccountID(n), nil
}

func (id AccountID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

type Account struct {
	ID   AccountID
	Name string
	Auth Auth
}

// DisplayName falls back to the numeric id when no name is stored.
func (a Account) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return a.ID.String()
}

// Credential is the opaque session secret the game web API accepts for an
// account. It is never persisted outside the secret store.
type Credential string
