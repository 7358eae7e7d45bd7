package ports

import "context"

// SecretStore keeps account credentials. Get wraps domain.ErrSecretNotFound
// when the key has no entry; Delete of a missing key is not an error.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
