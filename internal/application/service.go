package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bnema/memsim/internal/domain"
	"github.com/bnema/memsim/internal/formula"
	"github.com/bnema/memsim/internal/metrics"
	"github.com/bnema/memsim/internal/ports"
)

type ServiceConfig struct {
	// StartingBalance is credited to every new user. Zero means
	// DefaultStartingBalance.
	StartingBalance float64
	Logger          *slog.Logger
	Metrics         *metrics.Recorder
}

// Service runs simulation operations against the persisted snapshot. Each
// call loads the snapshot, applies one operation and saves it back only if
// the operation succeeded.
type Service struct {
	repo            ports.SimulationRepository
	clock           ports.Clock
	logger          *slog.Logger
	metrics         *metrics.Recorder
	startingBalance float64
}

func NewService(repo ports.SimulationRepository, clock ports.Clock, cfg ServiceConfig) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.StartingBalance == 0 {
		cfg.StartingBalance = DefaultStartingBalance
	}

	return &Service{
		repo:            repo,
		clock:           clock,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		startingBalance: cfg.StartingBalance,
	}
}

// NormalizeFormula strips all whitespace from a formula before it is stored.
func NormalizeFormula(source string) string {
	return strings.Join(strings.Fields(source), "")
}

func (s *Service) ValidateFormula(source string) error {
	_, err := formula.Validate(NormalizeFormula(source))
	return err
}

func (s *Service) Stake(ctx context.Context, memoryID domain.MemoryID, address domain.Address, amount float64) (StakeResult, error) {
	var result StakeResult
	err := s.mutate(ctx, "stake", func(sim *Simulation) error {
		var err error
		result, err = sim.Stake(memoryID, address, amount)
		return err
	})
	if err != nil {
		return StakeResult{}, err
	}

	s.metrics.TokensMinted(memoryID, result.Minted)
	s.logger.Info("stake applied",
		slog.String("memory", string(memoryID)),
		slog.String("user", string(address)),
		slog.Float64("amount", amount),
		slog.Float64("minted", result.Minted),
	)
	return result, nil
}

func (s *Service) Boost(ctx context.Context, memoryID domain.MemoryID, address domain.Address, amount float64) (BoostResult, error) {
	var result BoostResult
	err := s.mutate(ctx, "boost", func(sim *Simulation) error {
		var err error
		result, err = sim.Boost(memoryID, address, amount)
		return err
	})
	if err != nil {
		return BoostResult{}, err
	}

	s.logger.Info("boost applied",
		slog.String("memory", string(memoryID)),
		slog.String("user", string(address)),
		slog.Float64("amount", amount),
	)
	return result, nil
}

func (s *Service) RedeemPosition(ctx context.Context, memoryID domain.MemoryID, address domain.Address) (RedeemResult, error) {
	var result RedeemResult
	err := s.mutate(ctx, "redeem", func(sim *Simulation) error {
		var err error
		result, err = sim.RedeemPosition(memoryID, address)
		return err
	})
	if err != nil {
		return RedeemResult{}, err
	}

	s.logger.Info("position redeemed",
		slog.String("memory", string(memoryID)),
		slog.String("user", string(address)),
		slog.Float64("tokens", result.Tokens),
		slog.Float64("payout", result.Redemption.Total()),
	)
	return result, nil
}

func (s *Service) RedeemCreatorEarnings(ctx context.Context, memoryID domain.MemoryID, caller domain.Address) (CreatorRedeemResult, error) {
	var result CreatorRedeemResult
	err := s.mutate(ctx, "redeem_creator", func(sim *Simulation) error {
		var err error
		result, err = sim.RedeemCreatorEarnings(memoryID, caller)
		return err
	})
	if err != nil {
		return CreatorRedeemResult{}, err
	}

	s.logger.Info("creator earnings redeemed",
		slog.String("memory", string(memoryID)),
		slog.String("creator", string(caller)),
		slog.Float64("amount", result.Amount),
	)
	return result, nil
}

func (s *Service) RecalculateAllPositions(ctx context.Context, memoryID domain.MemoryID) (RecalculateResult, error) {
	var result RecalculateResult
	err := s.mutate(ctx, "recalculate", func(sim *Simulation) error {
		var err error
		result, err = sim.RecalculateAllPositions(memoryID)
		return err
	})
	return result, err
}

// UpdateCurve replaces the price formula and recalculates every position.
// Unless force is set, the curve may only change while the creator is the
// sole user.
func (s *Service) UpdateCurve(ctx context.Context, source string, force bool) (CurveUpdate, error) {
	normalized := NormalizeFormula(source)

	var update CurveUpdate
	err := s.mutate(ctx, "set_formula", func(sim *Simulation) error {
		if !force && !sim.CurveUnlocked() {
			return domain.ErrCurveLocked
		}
		update.Previous = sim.Formula()
		results, err := sim.SetFormula(normalized)
		if err != nil {
			return err
		}
		update.Formula = sim.Formula()
		update.Results = results
		return nil
	})
	if err != nil {
		return CurveUpdate{}, err
	}

	recalculated := 0
	for _, result := range update.Results {
		recalculated += len(result.Users)
	}
	s.logger.Info("positions recalculated",
		slog.String("formula", update.Formula),
		slog.Int("memories", len(update.Results)),
		slog.Int("users", recalculated),
	)
	return update, nil
}

func (s *Service) AddUser(ctx context.Context, address domain.Address, role domain.Role) (domain.User, error) {
	var user domain.User
	err := s.mutate(ctx, "add_user", func(sim *Simulation) error {
		var err error
		user, err = sim.AddUser(address, role)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("user added", slog.String("user", string(user.Address)), slog.String("role", string(user.Role)))
	return user, nil
}

func (s *Service) Join(ctx context.Context, cmd JoinCommand) (JoinResult, error) {
	var result JoinResult
	err := s.mutate(ctx, "join", func(sim *Simulation) error {
		var err error
		result, err = sim.Join(cmd)
		return err
	})
	if err != nil {
		return JoinResult{}, err
	}

	s.metrics.TokensMinted(result.Memory.ID, result.Minted)
	s.logger.Info("participant joined",
		slog.String("user", string(result.User.Address)),
		slog.String("role", string(result.User.Role)),
		slog.Float64("amount", cmd.Amount),
	)
	return result, nil
}

func (s *Service) CreateMemory(ctx context.Context, name string, creator domain.Address) (domain.Memory, error) {
	var memory domain.Memory
	err := s.mutate(ctx, "create_memory", func(sim *Simulation) error {
		var err error
		memory, err = sim.CreateMemory(name, creator)
		return err
	})
	return memory, err
}

// Reset replaces the saved simulation with a fresh seed.
func (s *Service) Reset(ctx context.Context) (domain.Snapshot, error) {
	snapshot := domain.SeedSnapshot(formula.DefaultFormula, s.startingBalance, s.clock.Now())
	if err := s.repo.Save(ctx, snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("save simulation: %w", err)
	}

	s.logger.Info("simulation reset")
	return snapshot, nil
}

// Overview reports one memory, or the first one when memoryID is empty.
func (s *Service) Overview(ctx context.Context, memoryID domain.MemoryID) (Overview, error) {
	sim, err := s.open(ctx)
	if err != nil {
		return Overview{}, err
	}
	return overview(sim, memoryID)
}

func overview(sim *Simulation, memoryID domain.MemoryID) (Overview, error) {
	snapshot := sim.Snapshot()
	if memoryID == "" {
		if len(snapshot.Memories) == 0 {
			return Overview{}, domain.ErrMemoryNotFound
		}
		memoryID = snapshot.Memories[0].ID
	}

	memory, err := sim.Memory(memoryID)
	if err != nil {
		return Overview{}, err
	}
	price, err := sim.Price(memoryID)
	if err != nil {
		return Overview{}, err
	}

	return Overview{
		Memory:        memory,
		Price:         price,
		Formula:       snapshot.Formula,
		CurveUnlocked: sim.CurveUnlocked(),
		Players:       PlayerChart(snapshot.Users, memory),
		UpdatedAt:     snapshot.UpdatedAt,
	}, nil
}

func (s *Service) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	sim, err := s.open(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return sim.Snapshot(), nil
}

func (s *Service) Price(ctx context.Context, memoryID domain.MemoryID) (float64, error) {
	sim, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	return sim.Price(memoryID)
}

func (s *Service) PreviewMint(ctx context.Context, memoryID domain.MemoryID, amount float64) (float64, error) {
	sim, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	return sim.PreviewMint(memoryID, amount)
}

func (s *Service) open(ctx context.Context) (*Simulation, error) {
	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrSimulationNotFound) {
			return nil, fmt.Errorf("load simulation: %w", err)
		}
		snapshot = domain.SeedSnapshot(formula.DefaultFormula, s.startingBalance, s.clock.Now())
	}

	return s.restore(snapshot)
}

func (s *Service) restore(snapshot domain.Snapshot) (*Simulation, error) {
	engine := formula.NewEngine(
		formula.WithLogger(s.logger),
		formula.WithFallbackHook(s.metrics.FormulaFallback),
	)
	sim, err := NewSimulation(engine, snapshot, WithClock(s.clock), WithStartingBalance(s.startingBalance))
	if err != nil {
		return nil, fmt.Errorf("restore simulation: %w", err)
	}
	return sim, nil
}

func (s *Service) mutate(ctx context.Context, operation string, apply func(*Simulation) error) error {
	sim, err := s.open(ctx)
	if err != nil {
		return err
	}

	err = s.apply(sim, operation, apply)
	if err != nil {
		return err
	}

	return s.save(ctx, sim)
}

// apply runs one operation and records its outcome. A rejected operation
// leaves sim unchanged.
func (s *Service) apply(sim *Simulation, operation string, apply func(*Simulation) error) error {
	err := apply(sim)
	s.metrics.Operation(operation, err)
	if err != nil {
		s.logger.Debug("operation rejected", slog.String("operation", operation), slog.Any("error", err))
		return err
	}

	for _, memory := range sim.Memories() {
		s.metrics.ObserveMemory(memory)
	}
	return nil
}

func (s *Service) save(ctx context.Context, sim *Simulation) error {
	snapshot := sim.Snapshot()
	snapshot.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save simulation: %w", err)
	}
	return nil
}
