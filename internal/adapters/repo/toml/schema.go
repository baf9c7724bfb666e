package toml

import "fmt"

// SchemaVersion is the simulation file format version this build writes.
const SchemaVersion = 1

type simulationFileSchema struct {
	Version   int            `toml:"version"`
	Formula   string         `toml:"formula"`
	UpdatedAt string         `toml:"updated_at,omitempty"`
	Memories  []memorySchema `toml:"memories"`
	Users     []userSchema   `toml:"users"`
}

func (s *simulationFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = SchemaVersion
	}
}

func (s simulationFileSchema) validateVersion() error {
	if s.Version > SchemaVersion {
		return fmt.Errorf("unsupported simulation schema version %d (current %d)", s.Version, SchemaVersion)
	}

	return nil
}

type memorySchema struct {
	ID                string  `toml:"id"`
	Name              string  `toml:"name"`
	Creator           string  `toml:"creator"`
	PrincipleVault    float64 `toml:"principle_vault"`
	RevenueVault      float64 `toml:"revenue_vault"`
	CreatorVault      float64 `toml:"creator_vault"`
	TotalMemoryTokens float64 `toml:"total_memory_tokens"`
}

type userSchema struct {
	Address        string           `toml:"address"`
	Role           string           `toml:"role"`
	AttnBalance    float64          `toml:"attn_balance"`
	InjectedAmount float64          `toml:"injected_amount,omitempty"`
	RedeemedAmount float64          `toml:"redeemed_amount,omitempty"`
	Holdings       []holdingSchema  `toml:"holdings,omitempty"`
	Positions      []positionSchema `toml:"positions,omitempty"`
}

type holdingSchema struct {
	MemoryID string  `toml:"memory_id"`
	Tokens   float64 `toml:"tokens"`
}

type positionSchema struct {
	MemoryID     string  `toml:"memory_id"`
	AttnAmount   float64 `toml:"attn_amount"`
	MemoryTokens float64 `toml:"memory_tokens"`
	Timestamp    string  `toml:"timestamp,omitempty"`
}

type scenarioFileSchema struct {
	Name            string       `toml:"name"`
	Formula         string       `toml:"formula"`
	StartingBalance float64      `toml:"starting_balance"`
	Steps           []stepSchema `toml:"steps"`
}

type stepSchema struct {
	Action  string  `toml:"action"`
	Memory  string  `toml:"memory"`
	User    string  `toml:"user"`
	Role    string  `toml:"role"`
	Kind    string  `toml:"kind"`
	Amount  float64 `toml:"amount"`
	Formula string  `toml:"formula"`
	Force   bool    `toml:"force"`
	Name    string  `toml:"name"`
}
