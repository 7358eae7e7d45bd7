package ports

import (
	"context"

	"github.com/bnema/bottingctl/internal/domain"
)

type StatusPublisher interface {
	Publish(ctx context.Context, snapshot domain.SessionSnapshot) error
}

type SnapshotRepository interface {
	StatusPublisher
	Load(ctx context.Context) (domain.SessionSnapshot, error)
}
