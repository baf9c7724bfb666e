package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bnema/memsim/internal/domain"
	"github.com/bnema/memsim/internal/formula"
)

// RunScenario replays scenario against a freshly seeded simulation. A
// failed step is reported and skipped, as the interactive commands would
// reject it, and the run continues. With persist set the final state
// replaces the saved simulation.
func (s *Service) RunScenario(ctx context.Context, scenario Scenario, persist bool) (ScenarioReport, error) {
	runner := *s
	if scenario.StartingBalance > 0 {
		runner.startingBalance = scenario.StartingBalance
	}

	sim, err := runner.restore(domain.SeedSnapshot(formula.DefaultFormula, runner.startingBalance, s.clock.Now()))
	if err != nil {
		return ScenarioReport{}, err
	}
	if scenario.Formula != "" {
		if _, err := sim.SetFormula(NormalizeFormula(scenario.Formula)); err != nil {
			return ScenarioReport{}, fmt.Errorf("scenario formula: %w", err)
		}
	}

	report := ScenarioReport{Name: scenario.Name}
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return ScenarioReport{}, err
		}

		var detail string
		err := runner.apply(sim, string(step.Action), func(sim *Simulation) error {
			var err error
			detail, err = runner.runStep(sim, step)
			return err
		})

		report.Steps = append(report.Steps, StepReport{Index: i + 1, Action: step.Action, Detail: detail, Err: err})
		if err != nil {
			report.Failed++
			s.logger.Warn("scenario step failed",
				slog.Int("step", i+1),
				slog.String("action", string(step.Action)),
				slog.Any("error", err),
			)
		}
	}

	report.Snapshot = sim.Snapshot()
	report.Snapshot.UpdatedAt = s.clock.Now()
	report.Overview, err = overview(sim, "")
	if err != nil {
		return ScenarioReport{}, err
	}
	report.Overview.UpdatedAt = report.Snapshot.UpdatedAt

	if persist {
		if err := s.repo.Save(ctx, report.Snapshot); err != nil {
			return ScenarioReport{}, fmt.Errorf("save simulation: %w", err)
		}
	}

	return report, nil
}

func (s *Service) runStep(sim *Simulation, step Step) (string, error) {
	memoryID := step.Memory
	if memoryID == "" && step.Action != StepMemory {
		memories := sim.Memories()
		if len(memories) == 0 {
			return "", domain.ErrMemoryNotFound
		}
		memoryID = memories[0].ID
	}

	switch step.Action {
	case StepFormula:
		if !step.Force && !sim.CurveUnlocked() {
			return "", domain.ErrCurveLocked
		}
		if _, err := sim.SetFormula(NormalizeFormula(step.Formula)); err != nil {
			return "", err
		}
		return fmt.Sprintf("formula set to %s", sim.Formula()), nil

	case StepUser:
		user, err := sim.AddUser(step.User, step.Role)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("added %s as %s", user.Address, user.Role), nil

	case StepJoin:
		result, err := sim.Join(JoinCommand{MemoryID: memoryID, Role: step.Role, Kind: step.Kind, Amount: step.Amount})
		if err != nil {
			return "", err
		}
		s.metrics.TokensMinted(result.Memory.ID, result.Minted)
		return fmt.Sprintf("%s joined with %.2f ATTN", result.User.Address, step.Amount), nil

	case StepStake:
		result, err := sim.Stake(memoryID, step.User, step.Amount)
		if err != nil {
			return "", err
		}
		s.metrics.TokensMinted(memoryID, result.Minted)
		return fmt.Sprintf("%s staked %.2f ATTN for %.4f tokens", step.User, step.Amount, result.Minted), nil

	case StepBoost:
		if _, err := sim.Boost(memoryID, step.User, step.Amount); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s boosted %.2f ATTN", step.User, step.Amount), nil

	case StepRedeem:
		result, err := sim.RedeemPosition(memoryID, step.User)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s redeemed %.4f tokens for %.2f ATTN", step.User, result.Tokens, result.Redemption.Total()), nil

	case StepRedeemCreator:
		result, err := sim.RedeemCreatorEarnings(memoryID, step.User)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s collected %.2f ATTN", step.User, result.Amount), nil

	case StepMemory:
		memory, err := sim.CreateMemory(step.Name, step.User)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("created memory %q (%s)", memory.Name, memory.ID), nil

	case StepRecalculate:
		result, err := sim.RecalculateAllPositions(memoryID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("recalculated %d users", len(result.Users)), nil

	default:
		return "", fmt.Errorf("unknown scenario action %q", step.Action)
	}
}
