package gameapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
)

const (
	DefaultAuthBaseURL       = "https://auth.roblox.com"
	DefaultShareLinksBaseURL = "https://apis.roblox.com"

	sessionCookieName = ".ROBLOSECURITY"
	csrfHeader        = "x-csrf-token"
	maxResponseBytes  = 1 << 20
)

// Client holds what the ticket and share link adapters share: an HTTP
// client, a per-request timeout and the failure classifier for bodies.
type Client struct {
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Classifier     domain.FailureClassifier
}

type apiResponse struct {
	status int
	header http.Header
	body   []byte
}

// post sends a credentialed POST, repeating it once when the server answers
// 403 with a fresh CSRF token.
func (c Client) post(ctx context.Context, endpoint string, credential domain.Credential, contentType string, body []byte) (apiResponse, error) {
	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	csrfToken := ""
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return apiResponse{}, fmt.Errorf("create request: %w", err)
		}
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: string(credential)})
		req.Header.Set("Referer", "https://www.roblox.com/")
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if csrfToken != "" {
			req.Header.Set(csrfHeader, csrfToken)
		}

		resp, err := c.httpClient().Do(req)
		if err != nil {
			return apiResponse{}, fmt.Errorf("send request: %w", err)
		}
		payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if readErr != nil {
			return apiResponse{}, fmt.Errorf("read response: %w", readErr)
		}

		if resp.StatusCode == http.StatusForbidden && csrfToken == "" {
			if token := resp.Header.Get(csrfHeader); token != "" {
				csrfToken = token
				continue
			}
		}
		return apiResponse{status: resp.StatusCode, header: resp.Header, body: payload}, nil
	}
	return apiResponse{}, errors.New("csrf token rejected twice")
}

// classify maps a non-success response onto the domain failure types.
func (c Client) classify(source string, resp apiResponse) error {
	text := strings.TrimSpace(string(resp.body))
	switch resp.status {
	case http.StatusTooManyRequests:
		return &domain.RateLimitError{Source: source, Err: fmt.Errorf("status %d", resp.status)}
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w: status %d", source, domain.ErrAuthFailed, resp.status)
	}
	if failure := c.Classifier.Wrap(source, text); failure != nil {
		return failure
	}
	if text == "" {
		return fmt.Errorf("%s: status %d", source, resp.status)
	}
	return fmt.Errorf("%s: status %d: %s", source, resp.status, truncate(text, 200))
}

func (c Client) withDefaults() Client {
	if len(c.Classifier.RateLimitPhrases) == 0 && len(c.Classifier.AuthFailurePhrases) == 0 {
		c.Classifier = domain.NewFailureClassifier(nil, nil)
	}
	return c
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// requestContext bounds one API call; an earlier caller deadline still wins.
func (c Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
