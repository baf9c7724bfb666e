package application

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bnema/memsim/internal/domain"
	"github.com/bnema/memsim/internal/formula"
	"github.com/bnema/memsim/internal/logging"
	"github.com/bnema/memsim/internal/metrics"
	"github.com/bnema/memsim/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockedService(t *testing.T) (*Service, *mocks.MockSimulationRepository, *metrics.Recorder) {
	t.Helper()

	repo := mocks.NewMockSimulationRepository(t)
	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(testNow).Maybe()
	recorder := metrics.NewRecorder()

	service := NewService(repo, clock, ServiceConfig{Logger: logging.Discard(), Metrics: recorder})
	return service, repo, recorder
}

func seededSnapshot(users ...domain.User) domain.Snapshot {
	snapshot := domain.SeedSnapshot(formula.DefaultFormula, DefaultStartingBalance, testNow)
	snapshot.Users = append(snapshot.Users, users...)
	return snapshot
}

func mockAnyContext() interface{} {
	return mock.Anything
}

func TestServiceStakeSeedsMissingSimulationAndSaves(t *testing.T) {
	service, repo, recorder := newMockedService(t)

	var saved domain.Snapshot
	repo.EXPECT().Load(mockAnyContext()).Return(domain.Snapshot{}, domain.ErrSimulationNotFound)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Run(func(_ context.Context, snapshot domain.Snapshot) {
		saved = snapshot
	}).Return(nil)

	result, err := service.Stake(context.Background(), domain.SeedMemoryID, domain.SeedCreator, 100)
	require.NoError(t, err)
	assert.Positive(t, result.Minted)

	require.Len(t, saved.Memories, 1)
	assert.InDelta(t, 70, saved.Memories[0].PrincipleVault, delta)
	assert.Equal(t, result.Minted, saved.Memories[0].TotalMemoryTokens)
	assert.Equal(t, testNow, saved.UpdatedAt)
	assert.Equal(t, formula.DefaultFormula, saved.Formula)

	var out bytes.Buffer
	require.NoError(t, recorder.WriteText(&out))
	assert.Contains(t, out.String(), `memsim_operations_total{operation="stake",outcome="ok"} 1`)
	assert.Contains(t, out.String(), `memsim_vault_balance_attn{memory="1",vault="principle"} 70`)
}

func TestServiceRejectedOperationIsNotSaved(t *testing.T) {
	service, repo, recorder := newMockedService(t)
	repo.EXPECT().Load(mockAnyContext()).Return(seededSnapshot(), nil)

	_, err := service.Stake(context.Background(), domain.SeedMemoryID, "Ghost", 10)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = service.Boost(context.Background(), domain.SeedMemoryID, domain.SeedCreator, 5000)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = service.RedeemPosition(context.Background(), domain.SeedMemoryID, domain.SeedCreator)
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)

	var out bytes.Buffer
	require.NoError(t, recorder.WriteText(&out))
	assert.Contains(t, out.String(), `memsim_operations_total{operation="stake",outcome="not_found"} 1`)
	assert.Contains(t, out.String(), `memsim_operations_total{operation="boost",outcome="insufficient_balance"} 1`)
}

func TestServiceWrapsRepositoryErrors(t *testing.T) {
	t.Run("load", func(t *testing.T) {
		service, repo, _ := newMockedService(t)
		repo.EXPECT().Load(mockAnyContext()).Return(domain.Snapshot{}, errors.New("disk gone"))

		_, err := service.Overview(context.Background(), "")
		require.Error(t, err)
		assert.EqualError(t, err, "load simulation: disk gone")
	})

	t.Run("save", func(t *testing.T) {
		service, repo, _ := newMockedService(t)
		repo.EXPECT().Load(mockAnyContext()).Return(seededSnapshot(), nil)
		repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(errors.New("read-only"))

		_, err := service.AddUser(context.Background(), "Alice", domain.RoleStaker)
		require.Error(t, err)
		assert.EqualError(t, err, "save simulation: read-only")
	})

	t.Run("corrupt snapshot", func(t *testing.T) {
		service, repo, _ := newMockedService(t)
		snapshot := seededSnapshot()
		snapshot.Formula = "tvl +"
		repo.EXPECT().Load(mockAnyContext()).Return(snapshot, nil)

		_, err := service.Price(context.Background(), domain.SeedMemoryID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "restore simulation: restore formula")
	})
}

func TestServiceUpdateCurveNormalizesAndRecalculates(t *testing.T) {
	service, repo, _ := newMockedService(t)

	var saved domain.Snapshot
	repo.EXPECT().Load(mockAnyContext()).Return(seededSnapshot(), nil)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Run(func(_ context.Context, snapshot domain.Snapshot) {
		saved = snapshot
	}).Return(nil)

	update, err := service.UpdateCurve(context.Background(), "  0.01 * tvl\t+ 1 ", false)
	require.NoError(t, err)
	assert.Equal(t, formula.DefaultFormula, update.Previous)
	assert.Equal(t, "0.01*tvl+1", update.Formula)
	assert.Equal(t, "0.01*tvl+1", saved.Formula)
}

func TestServiceUpdateCurveLock(t *testing.T) {
	service, repo, _ := newMockedService(t)

	snapshot := seededSnapshot(staker("Staker_1"))
	snapshot.Users[1].AttnBalance = 900
	snapshot.Users[1].MemoryTokens["1"] = 1
	snapshot.Users[1].StakePositions = []domain.StakePosition{{MemoryID: "1", AttnAmount: 100, MemoryTokens: 1}}
	snapshot.Memories[0].PrincipleVault = 70
	snapshot.Memories[0].RevenueVault = 25
	snapshot.Memories[0].CreatorVault = 5
	snapshot.Memories[0].TotalMemoryTokens = 1
	repo.EXPECT().Load(mockAnyContext()).Return(snapshot, nil)

	_, err := service.UpdateCurve(context.Background(), "2", false)
	assert.ErrorIs(t, err, domain.ErrCurveLocked)

	var saved domain.Snapshot
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Run(func(_ context.Context, snapshot domain.Snapshot) {
		saved = snapshot
	}).Return(nil).Once()

	update, err := service.UpdateCurve(context.Background(), "2", true)
	require.NoError(t, err)
	require.Len(t, update.Results, 1)
	assert.InDelta(t, 50, saved.Users[1].StakePositions[0].MemoryTokens, delta)
	assert.InDelta(t, 50, saved.Memories[0].TotalMemoryTokens, delta)
}

func TestServiceUpdateCurveRejectsInvalidFormula(t *testing.T) {
	service, repo, recorder := newMockedService(t)
	repo.EXPECT().Load(mockAnyContext()).Return(seededSnapshot(), nil)

	_, err := service.UpdateCurve(context.Background(), "tvl ** 2", false)
	assert.True(t, formula.IsSyntaxError(err))

	assert.True(t, formula.IsSyntaxError(service.ValidateFormula("sqrt(tvl)")))
	assert.NoError(t, service.ValidateFormula(" tvl ^ 0.5 "))

	var out bytes.Buffer
	require.NoError(t, recorder.WriteText(&out))
	assert.Contains(t, out.String(), `memsim_operations_total{operation="set_formula",outcome="formula_error"} 1`)
}

func TestServiceJoinAndOverview(t *testing.T) {
	service, repo, _ := newMockedService(t)

	current := seededSnapshot()
	repo.EXPECT().Load(mockAnyContext()).RunAndReturn(func(context.Context) (domain.Snapshot, error) {
		return current, nil
	})
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).RunAndReturn(func(_ context.Context, snapshot domain.Snapshot) error {
		current = snapshot
		return nil
	})

	joined, err := service.Join(context.Background(), JoinCommand{Role: domain.RoleStaker, Amount: 250})
	require.NoError(t, err)
	assert.Equal(t, domain.Address("Staker_1"), joined.User.Address)

	_, err = service.Join(context.Background(), JoinCommand{Role: domain.RoleAdvertiser, Kind: AdvertiserKindExternalRevenue, Amount: 40})
	require.NoError(t, err)

	overview, err := service.Overview(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.SeedMemoryID, overview.Memory.ID)
	assert.False(t, overview.CurveUnlocked)
	assert.Equal(t, formula.DefaultPrice(overview.Memory.TVL()), overview.Price)
	require.Len(t, overview.Players, 3)
	assert.Equal(t, domain.Address("Staker_1"), overview.Players[0].Address)
	assert.Equal(t, domain.Address("External Revenue_1"), overview.Players[1].Address)

	_, err = service.Overview(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrMemoryNotFound)
}

func TestServiceReset(t *testing.T) {
	service, repo, _ := newMockedService(t)
	repo.EXPECT().Save(mockAnyContext(), seededSnapshot()).Return(nil)

	snapshot, err := service.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seededSnapshot(), snapshot)
}

func TestServiceRunScenario(t *testing.T) {
	service, repo, _ := newMockedService(t)

	scenario := Scenario{
		Name: "launch",
		Steps: []Step{
			{Action: StepFormula, Formula: "0.005 * (tvl^0.6) + 0.2"},
			{Action: StepJoin, Role: domain.RoleStaker, Amount: 1000},
			{Action: StepFormula, Formula: "tvl"},
			{Action: StepJoin, Role: domain.RoleAdvertiser, Kind: AdvertiserKindAirdrop, Amount: 100},
			{Action: StepStake, User: "Staker_1", Amount: 1},
			{Action: StepRedeem, User: "Staker_1"},
			{Action: StepRedeemCreator, User: domain.SeedCreator},
			{Action: "mint"},
		},
	}

	report, err := service.RunScenario(context.Background(), scenario, false)
	require.NoError(t, err)
	require.Len(t, report.Steps, 8)
	assert.Equal(t, 3, report.Failed)

	assert.NoError(t, report.Steps[0].Err)
	assert.ErrorIs(t, report.Steps[2].Err, domain.ErrCurveLocked)
	assert.ErrorIs(t, report.Steps[4].Err, domain.ErrInsufficientBalance)
	assert.EqualError(t, report.Steps[7].Err, `unknown scenario action "mint"`)
	assert.Contains(t, report.Steps[6].Detail, "Creator_1 collected 55.00 ATTN")

	assert.Equal(t, "0.005*(tvl^0.6)+0.2", report.Snapshot.Formula)
	require.Len(t, report.Snapshot.Users, 3)
	assert.InDelta(t, 1055, report.Snapshot.Users[0].AttnBalance, delta)
	assert.Zero(t, report.Snapshot.Memories[0].TotalMemoryTokens)

	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(nil).Once()
	_, err = service.RunScenario(context.Background(), scenario, true)
	require.NoError(t, err)
}

func TestServiceRunScenarioRejectsBadStartingFormula(t *testing.T) {
	service, _, _ := newMockedService(t)

	_, err := service.RunScenario(context.Background(), Scenario{Formula: "tvl +"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario formula")
}
