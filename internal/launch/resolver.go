package launch

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/ports"
)

var ErrShareLinkResolverMissing = errors.New("share link resolver is not configured")

type Resolver struct {
	links ports.ShareLinkResolver
}

func NewResolver(links ports.ShareLinkResolver) *Resolver {
	return &Resolver{links: links}
}

// ResolvePrivateJoin produces the final launch target for a normalized job.
// Share links cost one round-trip to the resolution service; access codes and
// plain link codes are used as-is.
func (r *Resolver) ResolvePrivateJoin(ctx context.Context, credential domain.Credential, placeID int64, job Job) (domain.LaunchTarget, error) {
	target := domain.LaunchTarget{
		PlaceID:       placeID,
		JobID:         job.JobID,
		PrivateServer: job.PrivateServer,
	}

	if embedded, ok := embeddedPlaceID(job.Raw, job.Code); ok {
		target.PlaceID = embedded
	}

	code := job.Code
	if code == "" {
		return target, nil
	}

	target.JobID = ""
	target.PrivateServer = true

	switch {
	case job.ShareLink || looksLikeShareCode(code):
		if r.links == nil {
			return domain.LaunchTarget{}, ErrShareLinkResolverMissing
		}
		resolved, err := r.links.ResolveShareLink(ctx, credential, code)
		if err != nil {
			return domain.LaunchTarget{}, fmt.Errorf("resolve share link: %w", err)
		}
		if resolved.PlaceID > 0 {
			target.PlaceID = resolved.PlaceID
		}
		target.LinkCode = resolved.LinkCode
	case looksLikeAccessCode(code):
		target.AccessCode = code
	default:
		target.LinkCode = code
	}

	if target.PlaceID <= 0 {
		return domain.LaunchTarget{}, fmt.Errorf("private join for code %q has no place id", code)
	}

	return target, nil
}

func parsePositive(raw string) (int64, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
