package gameapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/metrics"
	"github.com/bnema/bottingctl/internal/ports"
	"github.com/sony/gobreaker"
)

const shareLinkPath = "/sharelinks/v1/resolve-link"

var ErrShareLinkInvalid = errors.New("share link did not resolve to a private server")

type resolveLinkRequest struct {
	LinkID   string `json:"linkId"`
	LinkType string `json:"linkType"`
}

type resolveLinkResponse struct {
	PrivateServerInviteData *struct {
		Status   string          `json:"status"`
		PlaceID  json.RawMessage `json:"placeId"`
		LinkCode string          `json:"linkCode"`
	} `json:"privateServerInviteData"`
}

// ShareLinkResolver turns share codes into place id + link code. Calls go
// through a circuit breaker so a failing endpoint stops being hammered by
// every account's launch.
type ShareLinkResolver struct {
	Client
	BaseURL string

	cb *gobreaker.CircuitBreaker
}

var _ ports.ShareLinkResolver = (*ShareLinkResolver)(nil)

func NewShareLinkResolver(baseURL string, client Client, logger *slog.Logger) *ShareLinkResolver {
	if baseURL == "" {
		baseURL = DefaultShareLinksBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "share-links",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// Rejected or unknown links are caller mistakes, not endpoint health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrShareLinkInvalid) || errors.Is(err, domain.ErrAuthFailed)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &ShareLinkResolver{Client: client.withDefaults(), BaseURL: baseURL, cb: cb}
}

func (r *ShareLinkResolver) ResolveShareLink(ctx context.Context, credential domain.Credential, code string) (ports.ResolvedShareLink, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return ports.ResolvedShareLink{}, errors.New("share code is required")
	}

	result, err := r.cb.Execute(func() (interface{}, error) {
		return r.resolve(ctx, credential, code)
	})
	if err != nil {
		return ports.ResolvedShareLink{}, err
	}
	return result.(ports.ResolvedShareLink), nil
}

// State reports the breaker state.
func (r *ShareLinkResolver) State() gobreaker.State {
	return r.cb.State()
}

func (r *ShareLinkResolver) resolve(ctx context.Context, credential domain.Credential, code string) (ports.ResolvedShareLink, error) {
	endpoint, err := buildAPIURL(r.BaseURL, shareLinkPath)
	if err != nil {
		return ports.ResolvedShareLink{}, err
	}

	body, err := json.Marshal(resolveLinkRequest{LinkID: code, LinkType: "Server"})
	if err != nil {
		return ports.ResolvedShareLink{}, fmt.Errorf("encode share link request: %w", err)
	}

	resp, err := r.post(ctx, endpoint, credential, "application/json", body)
	if err != nil {
		return ports.ResolvedShareLink{}, fmt.Errorf("request share link: %w", err)
	}
	if resp.status < http.StatusOK || resp.status >= http.StatusMultipleChoices {
		return ports.ResolvedShareLink{}, r.classify("share link", resp)
	}

	var payload resolveLinkResponse
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return ports.ResolvedShareLink{}, fmt.Errorf("decode share link response: %w", err)
	}

	data := payload.PrivateServerInviteData
	if data == nil || data.LinkCode == "" {
		return ports.ResolvedShareLink{}, ErrShareLinkInvalid
	}
	if data.Status != "" && !strings.EqualFold(data.Status, "valid") {
		return ports.ResolvedShareLink{}, fmt.Errorf("%w: status %s", ErrShareLinkInvalid, data.Status)
	}

	placeID, err := parsePlaceID(data.PlaceID)
	if err != nil {
		return ports.ResolvedShareLink{}, err
	}
	return ports.ResolvedShareLink{PlaceID: placeID, LinkCode: data.LinkCode}, nil
}

// parsePlaceID accepts the id as a JSON number or string.
func parsePlaceID(raw json.RawMessage) (int64, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return 0, nil
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode share link place id %q: %w", text, err)
	}
	return id, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
