package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/bottingctl/internal/adapters/secrets/file"
	passstore "github.com/bnema/bottingctl/internal/adapters/secrets/pass"
	"github.com/bnema/bottingctl/internal/ports"
)

// Backend is one named link of the chain.
type Backend struct {
	Name  string
	Store ports.SecretStore
}

// Store tries its backends in order. Reads and writes stop at the first
// backend that succeeds; deletes reach every backend so no stale copy stays
// behind a later link.
type Store struct {
	backends []Backend
}

var _ ports.SecretStore = (*Store)(nil)

var errNoBackends = errors.New("secret store chain has no backends")

func NewStore(backends ...Backend) (*Store, error) {
	if len(backends) == 0 {
		return nil, errNoBackends
	}
	for i, backend := range backends {
		if backend.Store == nil {
			return nil, fmt.Errorf("secret store backend %d (%s) is nil", i, backend.Name)
		}
	}

	return &Store{backends: backends}, nil
}

// NewPassFirstWithFileFallback prefers pass and falls back to owner-only
// files under fileRoot. With usePass false only the file backend is used.
func NewPassFirstWithFileFallback(fileRoot string, usePass bool) (*Store, error) {
	var backends []Backend
	if usePass {
		backends = append(backends, Backend{Name: "pass", Store: passstore.NewStore()})
	}
	backends = append(backends, Backend{Name: "file", Store: filestore.NewStore(fileRoot)})

	return NewStore(backends...)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error
	for _, backend := range s.backends {
		err := backend.Store.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if shouldStop(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("%s backend put failed: %w", backend.Name, err))
	}

	return errors.Join(errs...)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for _, backend := range s.backends {
		value, err := backend.Store.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if shouldStop(err) {
			return "", err
		}
		errs = append(errs, fmt.Errorf("%s backend get failed: %w", backend.Name, err))
	}

	return "", errors.Join(errs...)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	deleted := false
	for _, backend := range s.backends {
		err := backend.Store.Delete(ctx, key)
		if err == nil {
			deleted = true
			continue
		}
		if shouldStop(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("%s backend delete failed: %w", backend.Name, err))
	}
	if deleted {
		return nil
	}

	return errors.Join(errs...)
}

func shouldStop(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
