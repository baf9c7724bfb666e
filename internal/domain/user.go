package domain

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleStaker     Role = "staker"
	RoleAdvertiser Role = "advertiser"
	RoleCreator    Role = "creator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStaker, RoleAdvertiser, RoleCreator:
		return true
	default:
		return false
	}
}

func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("%w %q (want staker, advertiser or creator)", ErrInvalidRole, raw)
	}
	return role, nil
}

// StakePosition records one deposit. AttnAmount never changes after the
// stake; MemoryTokens is rewritten only when the price formula changes.
type StakePosition struct {
	MemoryID     MemoryID
	AttnAmount   float64
	MemoryTokens float64
	Timestamp    time.Time
}

type User struct {
	Address        Address
	AttnBalance    float64
	MemoryTokens   map[MemoryID]float64
	StakePositions []StakePosition
	Role           Role
	InjectedAmount float64
	// RedeemedAmount is the ATTN paid out by position redemptions. Positions
	// are dropped on redemption, so this is what marks a staker as redeemed.
	RedeemedAmount float64
}

func NewUser(address Address, role Role, balance float64) User {
	return User{
		Address:      address,
		AttnBalance:  balance,
		MemoryTokens: map[MemoryID]float64{},
		Role:         role,
	}
}

// Clone returns a copy that shares no maps or slices with u.
func (u User) Clone() User {
	clone := u
	clone.MemoryTokens = make(map[MemoryID]float64, len(u.MemoryTokens))
	for id, tokens := range u.MemoryTokens {
		clone.MemoryTokens[id] = tokens
	}
	clone.StakePositions = append([]StakePosition(nil), u.StakePositions...)
	return clone
}

func (u User) Holding(memoryID MemoryID) float64 {
	return u.MemoryTokens[memoryID]
}

// PositionsOn returns the user's positions on one memory in stake order.
func (u User) PositionsOn(memoryID MemoryID) []StakePosition {
	var positions []StakePosition
	for _, position := range u.StakePositions {
		if position.MemoryID == memoryID {
			positions = append(positions, position)
		}
	}
	return positions
}

func (u User) StakedOn(memoryID MemoryID) float64 {
	var staked float64
	for _, position := range u.PositionsOn(memoryID) {
		staked += position.AttnAmount
	}
	return staked
}

func (u User) Validate() error {
	if strings.TrimSpace(string(u.Address)) == "" {
		return fmt.Errorf("address is required")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidRole, u.Role)
	}

	return nil
}
