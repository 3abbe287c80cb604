package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesting-project/models"
)

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "vestingd", cmd.Use)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "config/config.yaml", configFlag.DefValue)
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"serve", "bootstrap", "status"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := `
leveldb:
  path: ` + filepath.Join(dir, "db") + `
log:
  level: error
vesting:
  owner: "0x00000000000000000000000000000000000000f0"
  custody_address: "0x00000000000000000000000000000000000000c0"
  decimals: 0
  total_supply: "1000"
  private_round:
    cap: "100"
    vesting_duration: 6000s
  rounds:
    - name: Team
      beneficiary: "0x00000000000000000000000000000000000000aa"
      total_allocation: "800"
      initial_unlock: { numerator: 0, denominator: 1 }
      cliff_duration: 0s
      vesting_duration: 1000s
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBootstrapAndStatus(t *testing.T) {
	path := writeTestConfig(t)

	out, err := run(t, "bootstrap", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "bootstrapped 1 rounds")

	_, err = run(t, "bootstrap", "--config", path)
	assert.ErrorIs(t, err, models.ErrAlreadyBootstrapped)

	out, err = run(t, "status", "-c", path)
	require.NoError(t, err)

	var status models.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.False(t, status.Clock.Started)
	assert.Equal(t, 1, status.Rounds)
	assert.Equal(t, "1000", status.CustodyBalance.String())
	assert.Equal(t, "1000", status.TotalSupply.String())
	assert.Equal(t, "100", status.Caps.PrivateRoundCap.String())
}

func TestStatus_NotBootstrapped(t *testing.T) {
	_, err := run(t, "status", "--config", writeTestConfig(t))
	assert.ErrorIs(t, err, models.ErrNotBootstrapped)
}

func TestStatus_MissingConfig(t *testing.T) {
	_, err := run(t, "status", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
