package ports

import (
	"context"

	"github.com/bnema/bottingctl/internal/domain"
)

// TicketIssuer returns a short-lived single-use launch ticket. Rate-limit
// shaped failures must satisfy errors.Is(err, domain.ErrRateLimited).
type TicketIssuer interface {
	IssueTicket(ctx context.Context, credential domain.Credential) (string, error)
}

type ResolvedShareLink struct {
	PlaceID  int64
	LinkCode string
}

type ShareLinkResolver interface {
	ResolveShareLink(ctx context.Context, credential domain.Credential, code string) (ResolvedShareLink, error)
}
