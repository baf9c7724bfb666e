package application

import (
	"fmt"
	"strings"

	"github.com/bnema/memsim/internal/domain"
)

// AdvertiserKind only names the auto-generated advertiser; every kind boosts
// the same way.
type AdvertiserKind string

const (
	AdvertiserKindAdvertiser      AdvertiserKind = "Advertiser"
	AdvertiserKindAirdrop         AdvertiserKind = "Airdrop"
	AdvertiserKindExternalRevenue AdvertiserKind = "External Revenue"
)

func ParseAdvertiserKind(raw string) (AdvertiserKind, error) {
	normalized := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(raw, "_", " ")), " "))
	switch normalized {
	case "", "advertiser":
		return AdvertiserKindAdvertiser, nil
	case "airdrop":
		return AdvertiserKindAirdrop, nil
	case "external revenue", "external-revenue":
		return AdvertiserKindExternalRevenue, nil
	default:
		return "", fmt.Errorf("unsupported advertiser kind %q (want advertiser, airdrop or external revenue)", raw)
	}
}

type JoinCommand struct {
	// MemoryID defaults to the first memory.
	MemoryID domain.MemoryID
	Role     domain.Role
	Kind     AdvertiserKind
	Amount   float64
}

type StepAction string

const (
	StepFormula       StepAction = "formula"
	StepUser          StepAction = "user"
	StepJoin          StepAction = "join"
	StepStake         StepAction = "stake"
	StepBoost         StepAction = "boost"
	StepRedeem        StepAction = "redeem"
	StepRedeemCreator StepAction = "redeem_creator"
	StepMemory        StepAction = "memory"
	StepRecalculate   StepAction = "recalculate"
)

// Step is one scripted operation in a scenario. Fields an action does not
// use are ignored.
type Step struct {
	Action  StepAction
	Memory  domain.MemoryID
	User    domain.Address
	Role    domain.Role
	Kind    AdvertiserKind
	Amount  float64
	Formula string
	Force   bool
	Name    string
}

type Scenario struct {
	Name string
	// Formula, when set, replaces the default curve before the first step.
	Formula         string
	StartingBalance float64
	Steps           []Step
}
