package ports

import (
	"context"

	"github.com/bnema/bottingctl/internal/domain"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, id domain.AccountID) error
}

// AccountRegistry resolves an account id to the credential used against the
// game web API. Unknown ids yield domain.ErrAccountNotFound.
type AccountRegistry interface {
	Exists(ctx context.Context, id domain.AccountID) (bool, error)
	Credential(ctx context.Context, id domain.AccountID) (domain.Credential, error)
}
