package application

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bnema/memsim/internal/curve"
	"github.com/bnema/memsim/internal/domain"
	"github.com/bnema/memsim/internal/formula"
	"github.com/bnema/memsim/internal/ledger"
	"github.com/bnema/memsim/internal/ports"
	"github.com/google/uuid"
)

const DefaultStartingBalance = 1000.0

// Simulation is the in-memory aggregate of memories and users. Every
// operation holds one lock for its whole duration and either applies all of
// its changes or none of them.
type Simulation struct {
	mu              sync.Mutex
	engine          *formula.Engine
	integrator      *curve.Integrator
	memories        []domain.Memory
	users           []domain.User
	clock           ports.Clock
	startingBalance float64
	updatedAt       time.Time
}

type SimulationOption func(*Simulation)

func WithClock(clock ports.Clock) SimulationOption {
	return func(s *Simulation) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithStartingBalance(balance float64) SimulationOption {
	return func(s *Simulation) {
		s.startingBalance = balance
	}
}

// NewSimulation restores snapshot on top of engine. A snapshot formula that
// no longer validates is an error; an empty one keeps the engine's formula.
func NewSimulation(engine *formula.Engine, snapshot domain.Snapshot, opts ...SimulationOption) (*Simulation, error) {
	if engine == nil {
		engine = formula.NewEngine()
	}

	s := &Simulation{
		engine:          engine,
		integrator:      curve.NewIntegrator(engine),
		clock:           ports.SystemClock{},
		startingBalance: DefaultStartingBalance,
		updatedAt:       snapshot.UpdatedAt,
	}
	for _, opt := range opts {
		opt(s)
	}

	if snapshot.Formula != "" && snapshot.Formula != engine.Formula() {
		if err := engine.SetFormula(snapshot.Formula); err != nil {
			return nil, fmt.Errorf("restore formula: %w", err)
		}
	}

	seen := make(map[domain.MemoryID]struct{}, len(snapshot.Memories))
	for _, memory := range snapshot.Memories {
		if err := memory.Validate(); err != nil {
			return nil, fmt.Errorf("memory %q: %w", memory.ID, err)
		}
		if _, ok := seen[memory.ID]; ok {
			return nil, fmt.Errorf("duplicate memory %q", memory.ID)
		}
		seen[memory.ID] = struct{}{}
		s.memories = append(s.memories, memory)
	}

	addresses := make(map[domain.Address]struct{}, len(snapshot.Users))
	for _, user := range snapshot.Users {
		if err := user.Validate(); err != nil {
			return nil, fmt.Errorf("user %q: %w", user.Address, err)
		}
		if _, ok := addresses[user.Address]; ok {
			return nil, fmt.Errorf("duplicate user %q", user.Address)
		}
		addresses[user.Address] = struct{}{}
		s.users = append(s.users, user.Clone())
	}

	return s, nil
}

type StakeResult struct {
	Memory domain.Memory
	User   domain.User
	Minted float64
	Split  ledger.Split
}

type BoostResult struct {
	Memory domain.Memory
	User   domain.User
	Split  ledger.Split
}

type RedeemResult struct {
	Memory     domain.Memory
	User       domain.User
	Tokens     float64
	Redemption ledger.Redemption
}

type CreatorRedeemResult struct {
	Memory domain.Memory
	User   domain.User
	Amount float64
}

type RecalculateResult struct {
	Memory domain.Memory
	Users  []domain.User
}

// Stake mints memory tokens for amount against the memory's pre-deposit
// vaults, then credits the stake split to the vaults.
func (s *Simulation) Stake(memoryID domain.MemoryID, address domain.Address, amount float64) (StakeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stakeLocked(memoryID, address, amount)
}

func (s *Simulation) stakeLocked(memoryID domain.MemoryID, address domain.Address, amount float64) (StakeResult, error) {
	if err := checkAmount(amount); err != nil {
		return StakeResult{}, err
	}
	mi, err := s.memoryIndex(memoryID)
	if err != nil {
		return StakeResult{}, err
	}
	ui, err := s.userIndex(address)
	if err != nil {
		return StakeResult{}, err
	}
	if err := checkBalance(s.users[ui], amount); err != nil {
		return StakeResult{}, err
	}

	memory := s.memories[mi]
	minted, err := s.integrator.TokensToMint(amount, memory.PrincipleVault, memory.RevenueVault)
	if err != nil {
		return StakeResult{}, fmt.Errorf("mint memory tokens: %w", err)
	}
	split := ledger.SplitStake(amount)

	user := s.users[ui].Clone()
	user.AttnBalance -= amount
	user.StakePositions = append(user.StakePositions, domain.StakePosition{
		MemoryID:     memoryID,
		AttnAmount:   amount,
		MemoryTokens: minted,
		Timestamp:    s.clock.Now(),
	})
	syncHolding(&user, memoryID)

	s.users[ui] = user
	memory = split.Apply(memory)
	memory.TotalMemoryTokens = outstandingTokens(s.users, memoryID)
	s.memories[mi] = memory

	return StakeResult{Memory: memory, User: user.Clone(), Minted: minted, Split: split}, nil
}

// Boost credits the revenue and creator vaults without minting tokens.
func (s *Simulation) Boost(memoryID domain.MemoryID, address domain.Address, amount float64) (BoostResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boostLocked(memoryID, address, amount)
}

func (s *Simulation) boostLocked(memoryID domain.MemoryID, address domain.Address, amount float64) (BoostResult, error) {
	if err := checkAmount(amount); err != nil {
		return BoostResult{}, err
	}
	mi, err := s.memoryIndex(memoryID)
	if err != nil {
		return BoostResult{}, err
	}
	ui, err := s.userIndex(address)
	if err != nil {
		return BoostResult{}, err
	}
	if err := checkBalance(s.users[ui], amount); err != nil {
		return BoostResult{}, err
	}

	split := ledger.SplitBoost(amount)

	user := s.users[ui].Clone()
	user.AttnBalance -= amount
	if user.Role == domain.RoleAdvertiser {
		user.InjectedAmount += amount
	}

	s.users[ui] = user
	s.memories[mi] = split.Apply(s.memories[mi])

	return BoostResult{Memory: s.memories[mi], User: user.Clone(), Split: split}, nil
}

// RedeemPosition pays out every position the user holds on the memory and
// removes them.
func (s *Simulation) RedeemPosition(memoryID domain.MemoryID, address domain.Address) (RedeemResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mi, err := s.memoryIndex(memoryID)
	if err != nil {
		return RedeemResult{}, err
	}
	ui, err := s.userIndex(address)
	if err != nil {
		return RedeemResult{}, err
	}

	user := s.users[ui].Clone()
	positions := user.PositionsOn(memoryID)
	if len(positions) == 0 {
		return RedeemResult{}, fmt.Errorf("%w: %s on memory %s", domain.ErrPositionNotFound, address, memoryID)
	}

	combined := domain.StakePosition{MemoryID: memoryID}
	tokens := make([]float64, 0, len(positions))
	for _, position := range positions {
		combined.AttnAmount += position.AttnAmount
		tokens = append(tokens, position.MemoryTokens)
	}
	combined.MemoryTokens = canonicalSum(tokens)

	memory := s.memories[mi]
	redemption := ledger.RedeemValue(combined, memory)

	user.AttnBalance += redemption.Total()
	user.RedeemedAmount += redemption.Total()
	user.MemoryTokens[memoryID] = 0
	kept := user.StakePositions[:0]
	for _, position := range user.StakePositions {
		if position.MemoryID != memoryID {
			kept = append(kept, position)
		}
	}
	user.StakePositions = kept

	s.users[ui] = user
	memory.PrincipleVault = debit(memory.PrincipleVault, redemption.Principle)
	memory.RevenueVault = debit(memory.RevenueVault, redemption.Revenue)
	memory.TotalMemoryTokens = outstandingTokens(s.users, memoryID)
	s.memories[mi] = memory

	return RedeemResult{Memory: memory, User: user.Clone(), Tokens: combined.MemoryTokens, Redemption: redemption}, nil
}

// RedeemCreatorEarnings moves the whole creator vault, as it stands at call
// time, to the memory's creator.
func (s *Simulation) RedeemCreatorEarnings(memoryID domain.MemoryID, caller domain.Address) (CreatorRedeemResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mi, err := s.memoryIndex(memoryID)
	if err != nil {
		return CreatorRedeemResult{}, err
	}
	memory := s.memories[mi]
	if memory.Creator != caller {
		return CreatorRedeemResult{}, fmt.Errorf("%w: %s does not own memory %s", domain.ErrNotCreator, caller, memoryID)
	}
	ui, err := s.userIndex(caller)
	if err != nil {
		return CreatorRedeemResult{}, err
	}

	amount := memory.CreatorVault
	user := s.users[ui].Clone()
	user.AttnBalance += amount
	memory.CreatorVault = 0

	s.users[ui] = user
	s.memories[mi] = memory

	return CreatorRedeemResult{Memory: memory, User: user.Clone(), Amount: amount}, nil
}

// RecalculateAllPositions re-mints every position on the memory from its
// original deposit against the memory's current vaults. Vaults are not
// touched.
func (s *Simulation) RecalculateAllPositions(memoryID domain.MemoryID) (RecalculateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mi, err := s.memoryIndex(memoryID)
	if err != nil {
		return RecalculateResult{}, err
	}

	users := cloneUsers(s.users)
	memory, touched, err := s.recalculate(s.memories[mi], users)
	if err != nil {
		return RecalculateResult{}, err
	}

	s.users = users
	s.memories[mi] = memory

	return RecalculateResult{Memory: memory, Users: touched}, nil
}

// recalculate rewrites positions on memory inside users in place and returns
// the updated memory plus copies of the users it changed.
func (s *Simulation) recalculate(memory domain.Memory, users []domain.User) (domain.Memory, []domain.User, error) {
	var touched []domain.User
	for ui := range users {
		user := &users[ui]
		changed := false
		for pi := range user.StakePositions {
			position := &user.StakePositions[pi]
			if position.MemoryID != memory.ID {
				continue
			}
			minted, err := s.integrator.TokensToMint(position.AttnAmount, memory.PrincipleVault, memory.RevenueVault)
			if err != nil {
				return domain.Memory{}, nil, fmt.Errorf("recalculate %s on memory %s: %w", user.Address, memory.ID, err)
			}
			position.MemoryTokens = minted
			changed = true
		}
		if changed {
			syncHolding(user, memory.ID)
			touched = append(touched, user.Clone())
		}
	}

	memory.TotalMemoryTokens = outstandingTokens(users, memory.ID)
	return memory, touched, nil
}

// SetFormula replaces the active formula and recalculates every memory. If
// any recalculation fails the previous formula is restored and nothing
// changes.
func (s *Simulation) SetFormula(source string) ([]RecalculateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.engine.Formula()
	if err := s.engine.SetFormula(source); err != nil {
		return nil, err
	}

	users := cloneUsers(s.users)
	memories := append([]domain.Memory(nil), s.memories...)
	results := make([]RecalculateResult, 0, len(memories))
	for i := range memories {
		memory, touched, err := s.recalculate(memories[i], users)
		if err != nil {
			if restoreErr := s.engine.SetFormula(previous); restoreErr != nil {
				return nil, fmt.Errorf("%w (restoring previous formula: %v)", err, restoreErr)
			}
			return nil, err
		}
		memories[i] = memory
		results = append(results, RecalculateResult{Memory: memory, Users: touched})
	}

	s.users = users
	s.memories = memories
	return results, nil
}

// AddUser registers a new user with the starting balance. A new creator
// takes over every memory whose creator is not a registered user.
func (s *Simulation) AddUser(address domain.Address, role domain.Role) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(address, role)
}

func (s *Simulation) addUserLocked(address domain.Address, role domain.Role) (domain.User, error) {
	address = domain.Address(strings.TrimSpace(string(address)))
	user := domain.NewUser(address, role, s.startingBalance)
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}
	if _, err := s.userIndex(address); err == nil {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrUserExists, address)
	}

	if role == domain.RoleCreator {
		var unowned []int
		for mi, memory := range s.memories {
			if _, err := s.userIndex(memory.Creator); err != nil {
				unowned = append(unowned, mi)
			}
		}
		if len(unowned) == 0 {
			return domain.User{}, domain.ErrCreatorExists
		}
		for _, mi := range unowned {
			s.memories[mi].Creator = address
		}
	}

	s.users = append(s.users, user)
	return user.Clone(), nil
}

type JoinResult struct {
	User   domain.User
	Memory domain.Memory
	Minted float64
}

// Join adds an auto-named staker or advertiser and, when cmd.Amount is
// positive, stakes or boosts that amount straight away. A failed deposit
// leaves no user behind.
func (s *Simulation) Join(cmd JoinCommand) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cmd.Role != domain.RoleStaker && cmd.Role != domain.RoleAdvertiser {
		return JoinResult{}, fmt.Errorf("%w %q: join accepts staker or advertiser", domain.ErrInvalidRole, cmd.Role)
	}
	if len(s.memories) == 0 {
		return JoinResult{}, domain.ErrMemoryNotFound
	}
	memoryID := cmd.MemoryID
	if memoryID == "" {
		memoryID = s.memories[0].ID
	}
	mi, err := s.memoryIndex(memoryID)
	if err != nil {
		return JoinResult{}, err
	}

	user, err := s.addUserLocked(s.nextParticipantName(cmd), cmd.Role)
	if err != nil {
		return JoinResult{}, err
	}
	if cmd.Amount == 0 {
		return JoinResult{User: user, Memory: s.memories[mi]}, nil
	}

	rollback := func() { s.users = s.users[:len(s.users)-1] }
	if cmd.Role == domain.RoleStaker {
		result, err := s.stakeLocked(memoryID, user.Address, cmd.Amount)
		if err != nil {
			rollback()
			return JoinResult{}, err
		}
		return JoinResult{User: result.User, Memory: result.Memory, Minted: result.Minted}, nil
	}

	result, err := s.boostLocked(memoryID, user.Address, cmd.Amount)
	if err != nil {
		rollback()
		return JoinResult{}, err
	}
	return JoinResult{User: result.User, Memory: result.Memory}, nil
}

func (s *Simulation) nextParticipantName(cmd JoinCommand) domain.Address {
	prefix := "Staker"
	if cmd.Role == domain.RoleAdvertiser {
		prefix = string(cmd.Kind)
		if prefix == "" {
			prefix = string(AdvertiserKindAdvertiser)
		}
	}

	n := 0
	for _, user := range s.users {
		if user.Role == cmd.Role {
			n++
		}
	}
	for {
		n++
		name := domain.Address(fmt.Sprintf("%s_%d", prefix, n))
		if _, err := s.userIndex(name); err != nil {
			return name
		}
	}
}

// CreateMemory adds an empty memory. With no creator given, the first
// registered creator owns it.
func (s *Simulation) CreateMemory(name string, creator domain.Address) (domain.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if creator == "" {
		for _, user := range s.users {
			if user.Role == domain.RoleCreator {
				creator = user.Address
				break
			}
		}
	}
	if creator == "" {
		return domain.Memory{}, fmt.Errorf("creator is required")
	}

	memory := domain.Memory{
		ID:      domain.MemoryID(uuid.NewString()),
		Name:    strings.TrimSpace(name),
		Creator: creator,
	}
	if err := memory.Validate(); err != nil {
		return domain.Memory{}, err
	}

	s.memories = append(s.memories, memory)
	return memory, nil
}

// CurveUnlocked reports whether the price formula may still be edited:
// the creator is the only user.
func (s *Simulation) CurveUnlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users) == 1 && s.users[0].Role == domain.RoleCreator
}

func (s *Simulation) Formula() string {
	return s.engine.Formula()
}

func (s *Simulation) Price(memoryID domain.MemoryID) (float64, error) {
	memory, err := s.Memory(memoryID)
	if err != nil {
		return 0, err
	}
	return s.engine.Price(memory.PrincipleVault, memory.RevenueVault), nil
}

// PreviewMint returns what staking amount would mint now, without staking.
func (s *Simulation) PreviewMint(memoryID domain.MemoryID, amount float64) (float64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	memory, err := s.Memory(memoryID)
	if err != nil {
		return 0, err
	}
	return s.integrator.TokensToMint(amount, memory.PrincipleVault, memory.RevenueVault)
}

func (s *Simulation) Memory(memoryID domain.MemoryID) (domain.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mi, err := s.memoryIndex(memoryID)
	if err != nil {
		return domain.Memory{}, err
	}
	return s.memories[mi], nil
}

func (s *Simulation) Memories() []domain.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Memory(nil), s.memories...)
}

func (s *Simulation) User(address domain.Address) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ui, err := s.userIndex(address)
	if err != nil {
		return domain.User{}, err
	}
	return s.users[ui].Clone(), nil
}

func (s *Simulation) Users() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUsers(s.users)
}

// Snapshot copies the full state. UpdatedAt is the time of the snapshot the
// simulation was restored from.
func (s *Simulation) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Snapshot{
		Formula:   s.engine.Formula(),
		Memories:  append([]domain.Memory(nil), s.memories...),
		Users:     cloneUsers(s.users),
		UpdatedAt: s.updatedAt,
	}
}

func (s *Simulation) memoryIndex(id domain.MemoryID) (int, error) {
	for i := range s.memories {
		if s.memories[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", domain.ErrMemoryNotFound, id)
}

func (s *Simulation) userIndex(address domain.Address) (int, error) {
	for i := range s.users {
		if s.users[i].Address == address {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", domain.ErrUserNotFound, address)
}

func checkAmount(amount float64) error {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: %g", domain.ErrInvalidAmount, amount)
	}
	return nil
}

func checkBalance(user domain.User, amount float64) error {
	if user.AttnBalance < amount {
		return fmt.Errorf("%w: %s has %g, needs %g", domain.ErrInsufficientBalance, user.Address, user.AttnBalance, amount)
	}
	return nil
}

// debit subtracts amount from balance, absorbing floating-point residue
// below zero.
func debit(balance, amount float64) float64 {
	return math.Max(0, balance-amount)
}

// canonicalSum adds values in ascending order so the result does not depend
// on the order they were collected in.
func canonicalSum(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var total float64
	for _, value := range sorted {
		total += value
	}
	return total
}

func outstandingTokens(users []domain.User, memoryID domain.MemoryID) float64 {
	var tokens []float64
	for _, user := range users {
		for _, position := range user.StakePositions {
			if position.MemoryID == memoryID {
				tokens = append(tokens, position.MemoryTokens)
			}
		}
	}
	return canonicalSum(tokens)
}

func syncHolding(user *domain.User, memoryID domain.MemoryID) {
	var tokens []float64
	for _, position := range user.StakePositions {
		if position.MemoryID == memoryID {
			tokens = append(tokens, position.MemoryTokens)
		}
	}
	if user.MemoryTokens == nil {
		user.MemoryTokens = map[domain.MemoryID]float64{}
	}
	user.MemoryTokens[memoryID] = canonicalSum(tokens)
}

func cloneUsers(users []domain.User) []domain.User {
	cloned := make([]domain.User, 0, len(users))
	for _, user := range users {
		cloned = append(cloned, user.Clone())
	}
	return cloned
}
