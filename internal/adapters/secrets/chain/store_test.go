package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bnema/bottingctl/internal/domain"
	portmocks "github.com/bnema/bottingctl/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const key = "bottingctl://account/42/credential"

func newChain(t *testing.T) (*Store, *portmocks.SecretStore, *portmocks.SecretStore) {
	t.Helper()

	primary := portmocks.NewSecretStore(t)
	fallback := portmocks.NewSecretStore(t)
	store, err := NewStore(Backend{Name: "pass", Store: primary}, Backend{Name: "file", Store: fallback})
	require.NoError(t, err)
	return store, primary, fallback
}

func TestNewStoreValidatesBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStore()
	require.Error(t, err)

	_, err = NewStore(Backend{Name: "pass"})
	require.ErrorContains(t, err, "pass")
}

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.On("Get", mock.Anything, key).Return("from-pass", nil).Once()

	value, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestStoreGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.On("Get", mock.Anything, key).Return("", errors.New("pass unavailable")).Once()
	fallback.On("Get", mock.Anything, key).Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetReturnsCombinedErrorWhenAllBackendsFail(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.On("Get", mock.Anything, key).Return("", errors.New("pass failed")).Once()
	fallback.On("Get", mock.Anything, key).Return("", fmt.Errorf("file secret: %w", domain.ErrSecretNotFound)).Once()

	_, err := store.Get(context.Background(), key)
	require.Error(t, err)
	assert.ErrorContains(t, err, "pass backend get failed")
	assert.ErrorContains(t, err, "file backend get failed")
	assert.ErrorContains(t, err, "pass failed")
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStorePutFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.On("Put", mock.Anything, key, "secret").Return(errors.New("pass failed")).Once()
	fallback.On("Put", mock.Anything, key, "secret").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), key, "secret"))
}

func TestStorePutDoesNotCallFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.On("Put", mock.Anything, key, "secret").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), key, "secret"))
}

func TestStoreDeleteReachesEveryBackend(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.On("Delete", mock.Anything, key).Return(nil).Once()
	fallback.On("Delete", mock.Anything, key).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), key))
}

func TestStoreDeleteSucceedsWhenAnyBackendDeletes(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.On("Delete", mock.Anything, key).Return(errors.New("pass failed")).Once()
	fallback.On("Delete", mock.Anything, key).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), key))
}

func TestStoreDeleteFailsWhenEveryBackendFails(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.On("Delete", mock.Anything, key).Return(errors.New("pass failed")).Once()
	fallback.On("Delete", mock.Anything, key).Return(errors.New("disk failed")).Once()

	err := store.Delete(context.Background(), key)
	require.ErrorContains(t, err, "pass failed")
	assert.ErrorContains(t, err, "disk failed")
}

func TestStoreGetDoesNotFallbackOnCanceledContextError(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.On("Get", mock.Anything, key).Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), key)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFileOnlyChain(t *testing.T) {
	t.Parallel()

	store, err := NewPassFirstWithFileFallback(t.TempDir(), false)
	require.NoError(t, err)
	require.Len(t, store.backends, 1)

	require.NoError(t, store.Put(context.Background(), key, "cookie"))
	value, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "cookie", value)
}
