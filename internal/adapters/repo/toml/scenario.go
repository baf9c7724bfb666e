package toml

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/memsim/internal/application"
	"github.com/bnema/memsim/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

// LoadScenario reads a scripted scenario file.
func LoadScenario(path string) (application.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return application.Scenario{}, fmt.Errorf("read scenario file: %w", err)
	}

	return ParseScenario(data)
}

func ParseScenario(data []byte) (application.Scenario, error) {
	var file scenarioFileSchema
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return application.Scenario{}, fmt.Errorf("decode scenario file: %w", err)
	}

	scenario := application.Scenario{
		Name:            file.Name,
		Formula:         file.Formula,
		StartingBalance: file.StartingBalance,
	}
	for i, encoded := range file.Steps {
		step, err := fromStepSchema(encoded)
		if err != nil {
			return application.Scenario{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		scenario.Steps = append(scenario.Steps, step)
	}

	return scenario, nil
}

func fromStepSchema(encoded stepSchema) (application.Step, error) {
	step := application.Step{
		Action:  application.StepAction(strings.ToLower(strings.TrimSpace(encoded.Action))),
		Memory:  domain.MemoryID(encoded.Memory),
		User:    domain.Address(encoded.User),
		Amount:  encoded.Amount,
		Formula: encoded.Formula,
		Force:   encoded.Force,
		Name:    encoded.Name,
	}

	switch step.Action {
	case application.StepFormula, application.StepUser, application.StepJoin,
		application.StepStake, application.StepBoost, application.StepRedeem,
		application.StepRedeemCreator, application.StepMemory, application.StepRecalculate:
	default:
		return application.Step{}, fmt.Errorf("unknown action %q", encoded.Action)
	}

	if encoded.Role != "" {
		role, err := domain.ParseRole(encoded.Role)
		if err != nil {
			return application.Step{}, err
		}
		step.Role = role
	}
	if step.Action == application.StepJoin && step.Role == "" {
		step.Role = domain.RoleStaker
	}

	if encoded.Kind != "" {
		kind, err := application.ParseAdvertiserKind(encoded.Kind)
		if err != nil {
			return application.Step{}, err
		}
		step.Kind = kind
	}

	return step, nil
}
