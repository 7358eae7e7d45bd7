package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/ports"
)

// Service manages the account registry: account records in the repository
// and their credentials in the secret store. It is also the scheduler's
// ports.AccountRegistry.
type Service struct {
	repo  ports.AccountRepository
	store ports.SecretStore
}

var _ ports.AccountRegistry = (*Service)(nil)

func NewService(repo ports.AccountRepository, store ports.SecretStore) *Service {
	return &Service{repo: repo, store: store}
}

type AddAccountCommand struct {
	ID         domain.AccountID
	Name       string
	Credential domain.Credential
}

// CredentialSecretKey is the secret-store key an account's credential lives under.
func CredentialSecretKey(id domain.AccountID) string {
	return fmt.Sprintf("bottingctl://account/%s/credential", id)
}

// AddAccount stores the credential first and rolls it back when the account
// record cannot be saved. A previous secret under another key is removed.
func (s *Service) AddAccount(ctx context.Context, cmd AddAccountCommand) error {
	if cmd.ID <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidAccountID, cmd.ID)
	}
	if strings.TrimSpace(string(cmd.Credential)) == "" {
		return domain.ErrNoCredential
	}

	account, err := s.repo.GetByID(ctx, cmd.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("get account by id: %w", err)
		}
		account = domain.Account{ID: cmd.ID}
	}
	previousRef := account.Auth.SecretRef

	secretKey := CredentialSecretKey(cmd.ID)
	if err := s.store.Put(ctx, secretKey, string(cmd.Credential)); err != nil {
		return fmt.Errorf("store account credential: %w", err)
	}

	if name := strings.TrimSpace(cmd.Name); name != "" {
		account.Name = name
	}
	account.Auth = domain.Auth{SecretRef: secretKey}

	if err := s.repo.Save(ctx, account); err != nil {
		if previousRef == secretKey {
			return fmt.Errorf("save account: %w", err)
		}
		if rollbackErr := s.store.Delete(ctx, secretKey); rollbackErr != nil {
			return fmt.Errorf("save account and rollback stored credential: %w", errors.Join(err, rollbackErr))
		}
		return fmt.Errorf("save account: %w", err)
	}

	if previousRef != "" && previousRef != secretKey {
		if err := s.store.Delete(ctx, previousRef); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
			return fmt.Errorf("delete previous credential: %w", err)
		}
	}

	return nil
}

// RemoveAccount deletes the credential, then the record. A missing secret
// does not block removal.
func (s *Service) RemoveAccount(ctx context.Context, id domain.AccountID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	if ref := account.Auth.SecretRef; ref != "" {
		if err := s.store.Delete(ctx, ref); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
			return fmt.Errorf("delete account credential: %w", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (s *Service) SetAccountName(ctx context.Context, id domain.AccountID, name string) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	account.Name = strings.TrimSpace(name)

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account name: %w", err)
	}

	return nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Service) Exists(ctx context.Context, id domain.AccountID) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrAccountNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("get account by id: %w", err)
}

func (s *Service) Credential(ctx context.Context, id domain.AccountID) (domain.Credential, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get account by id: %w", err)
	}
	if !account.Auth.Configured() {
		return "", fmt.Errorf("account %s: %w", id, domain.ErrNoCredential)
	}

	value, err := s.store.Get(ctx, account.Auth.SecretRef)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return "", fmt.Errorf("account %s: %w", id, domain.ErrNoCredential)
		}
		return "", fmt.Errorf("read account credential: %w", err)
	}
	return domain.Credential(strings.TrimSpace(value)), nil
}
