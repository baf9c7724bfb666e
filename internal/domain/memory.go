package domain

import (
	"fmt"
	"strings"
)

type MemoryID string
type Address string

// Memory is a shared staking pool with three vaults and an outstanding
// memory-token supply.
type Memory struct {
	ID                MemoryID
	Name              string
	PrincipleVault    float64
	RevenueVault      float64
	CreatorVault      float64
	TotalMemoryTokens float64
	Creator           Address
}

// TVL is the value the price curve is evaluated at. The creator vault is
// not part of it.
func (m Memory) TVL() float64 {
	return m.PrincipleVault + m.RevenueVault
}

func (m Memory) Validate() error {
	if strings.TrimSpace(string(m.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	for name, value := range map[string]float64{
		"principle vault":     m.PrincipleVault,
		"revenue vault":       m.RevenueVault,
		"creator vault":       m.CreatorVault,
		"total memory tokens": m.TotalMemoryTokens,
	} {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	return nil
}
