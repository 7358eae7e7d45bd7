package gameapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/platform/logging"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isAuthFailed(err error) bool {
	return errors.Is(err, domain.ErrAuthFailed)
}

func TestResolveShareLink(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, shareLinkPath, r.URL.Path)

		var req resolveLinkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "abcdef", req.LinkID)
		assert.Equal(t, "Server", req.LinkType)

		_, _ = w.Write([]byte(`{"privateServerInviteData":{"status":"Valid","placeId":920587237,"linkCode":"LINK-1"}}`))
	}))
	defer server.Close()

	resolver := NewShareLinkResolver(server.URL, Client{HTTPClient: server.Client()}, logging.Discard())
	got, err := resolver.ResolveShareLink(context.Background(), "cookie", "abcdef")
	require.NoError(t, err)
	assert.Equal(t, int64(920587237), got.PlaceID)
	assert.Equal(t, "LINK-1", got.LinkCode)
}

func TestResolveShareLinkAcceptsStringPlaceID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"privateServerInviteData":{"placeId":"55","linkCode":"L"}}`))
	}))
	defer server.Close()

	resolver := NewShareLinkResolver(server.URL, Client{HTTPClient: server.Client()}, logging.Discard())
	got, err := resolver.ResolveShareLink(context.Background(), "cookie", "code")
	require.NoError(t, err)
	assert.Equal(t, int64(55), got.PlaceID)
}

func TestResolveShareLinkInvalidDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"privateServerInviteData":{"status":"Expired","linkCode":"L"}}`))
	}))
	defer server.Close()

	resolver := NewShareLinkResolver(server.URL, Client{HTTPClient: server.Client()}, logging.Discard())
	for i := 0; i < 5; i++ {
		_, err := resolver.ResolveShareLink(context.Background(), "cookie", "code")
		assert.ErrorIs(t, err, ErrShareLinkInvalid)
	}
	assert.Equal(t, gobreaker.StateClosed, resolver.State())
}

func TestResolveShareLinkOpensBreakerOnServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resolver := NewShareLinkResolver(server.URL, Client{HTTPClient: server.Client()}, logging.Discard())
	for i := 0; i < 3; i++ {
		_, err := resolver.ResolveShareLink(context.Background(), "cookie", "code")
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, resolver.State())

	_, err := resolver.ResolveShareLink(context.Background(), "cookie", "code")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), calls.Load())
}

func TestResolveShareLinkRequiresCode(t *testing.T) {
	t.Parallel()

	_, err := NewShareLinkResolver("", Client{}, nil).ResolveShareLink(context.Background(), "cookie", "  ")
	require.Error(t, err)
}
