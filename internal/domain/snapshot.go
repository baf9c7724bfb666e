package domain

import "time"

// Snapshot is the full simulation state as it is persisted between runs.
type Snapshot struct {
	Formula   string
	Memories  []Memory
	Users     []User
	UpdatedAt time.Time
}

const (
	SeedMemoryID   MemoryID = "1"
	SeedMemoryName          = "Test Memory"
	SeedCreator    Address  = "Creator_1"
)

// SeedSnapshot is the state a new simulation starts from: one empty memory
// owned by a creator who holds the starting balance.
func SeedSnapshot(formula string, startingBalance float64, now time.Time) Snapshot {
	return Snapshot{
		Formula: formula,
		Memories: []Memory{{
			ID:      SeedMemoryID,
			Name:    SeedMemoryName,
			Creator: SeedCreator,
		}},
		Users:     []User{NewUser(SeedCreator, RoleCreator, startingBalance)},
		UpdatedAt: now,
	}
}
