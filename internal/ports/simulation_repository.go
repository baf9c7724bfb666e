package ports

import (
	"context"

	"github.com/bnema/memsim/internal/domain"
)

// SimulationRepository persists the whole simulation as one snapshot.
// Load returns domain.ErrSimulationNotFound when nothing was saved yet.
type SimulationRepository interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snapshot domain.Snapshot) error
}
