package toml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/memsim/internal/application"
	"github.com/bnema/memsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const launchScenario = `
name = "launch"
formula = "0.01 * tvl + 1"
starting_balance = 2000

[[steps]]
action = "join"
amount = 500

[[steps]]
action = "join"
role = "advertiser"
kind = "external_revenue"
amount = 100

[[steps]]
action = "stake"
user = "Creator_1"
memory = "1"
amount = 50

[[steps]]
action = "redeem_creator"
user = "Creator_1"
`

func TestParseScenario(t *testing.T) {
	t.Parallel()

	scenario, err := ParseScenario([]byte(launchScenario))
	require.NoError(t, err)

	assert.Equal(t, application.Scenario{
		Name:            "launch",
		Formula:         "0.01 * tvl + 1",
		StartingBalance: 2000,
		Steps: []application.Step{
			{Action: application.StepJoin, Role: domain.RoleStaker, Amount: 500},
			{Action: application.StepJoin, Role: domain.RoleAdvertiser, Kind: application.AdvertiserKindExternalRevenue, Amount: 100},
			{Action: application.StepStake, User: "Creator_1", Memory: "1", Amount: 50},
			{Action: application.StepRedeemCreator, User: "Creator_1"},
		},
	}, scenario)
}

func TestParseScenarioRejectsBadSteps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "unknown action", input: "[[steps]]\naction = \"mint\"\n", wantErr: `step 1: unknown action "mint"`},
		{name: "bad role", input: "[[steps]]\naction = \"user\"\nrole = \"whale\"\n", wantErr: "invalid role"},
		{name: "bad kind", input: "[[steps]]\naction = \"join\"\nkind = \"bribe\"\n", wantErr: "unsupported advertiser kind"},
		{name: "unknown field", input: "[[steps]]\naction = \"stake\"\ncoins = 3\n", wantErr: "decode scenario file"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseScenario([]byte(tc.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadScenarioReadsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "launch.toml")
	require.NoError(t, os.WriteFile(path, []byte(launchScenario), 0o600))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Len(t, scenario.Steps, 4)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read scenario file")
}
