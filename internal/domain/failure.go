package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRateLimited = errors.New("rate limited")
	ErrAuthFailed  = errors.New("authentication failed")
)

// RateLimitError marks a failure that should get the long per-account
// cooldown instead of the generic retry backoff.
type RateLimitError struct {
	Source string
	Err    error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: rate limited", e.Source)
	}
	return fmt.Sprintf("%s: rate limited: %v", e.Source, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureRateLimited
	FailureAuth
)

// FailureClassifier matches vendor messages (HTTP bodies, window titles)
// against configured phrases. Matching is case-insensitive substring search.
type FailureClassifier struct {
	RateLimitPhrases   []string
	AuthFailurePhrases []string
}

var (
	DefaultRateLimitPhrases = []string{
		"too many requests",
		"rate limit",
		"ratelimit",
		"status 429",
		"demasiadas solicitudes",
		"trop de requêtes",
		"请求过多",
	}
	DefaultAuthFailurePhrases = []string{
		"authentication failed",
		"authentication ticket",
		"not authorized",
		"error code: 403",
		"error code: 773",
	}
)

func NewFailureClassifier(rateLimit, auth []string) FailureClassifier {
	if len(rateLimit) == 0 {
		rateLimit = DefaultRateLimitPhrases
	}
	if len(auth) == 0 {
		auth = DefaultAuthFailurePhrases
	}
	return FailureClassifier{
		RateLimitPhrases:   normalizePhrases(rateLimit),
		AuthFailurePhrases: normalizePhrases(auth),
	}
}

func (c FailureClassifier) Classify(text string) FailureKind {
	lowered := strings.ToLower(text)
	if lowered == "" {
		return FailureNone
	}
	for _, phrase := range c.RateLimitPhrases {
		if strings.Contains(lowered, phrase) {
			return FailureRateLimited
		}
	}
	for _, phrase := range c.AuthFailurePhrases {
		if strings.Contains(lowered, phrase) {
			return FailureAuth
		}
	}
	return FailureNone
}

// Wrap converts a classified message into the matching typed error, or nil
// when nothing matched.
func (c FailureClassifier) Wrap(source, text string) error {
	switch c.Classify(text) {
	case FailureRateLimited:
		return &RateLimitError{Source: source, Err: errors.New(text)}
	case FailureAuth:
		return fmt.Errorf("%s: %w: %s", source, ErrAuthFailed, text)
	default:
		return nil
	}
}

func normalizePhrases(phrases []string) []string {
	result := make([]string, 0, len(phrases))
	seen := make(map[string]struct{}, len(phrases))
	for _, phrase := range phrases {
		normalized := strings.ToLower(strings.TrimSpace(phrase))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}
