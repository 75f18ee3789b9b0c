package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/panel-ledger/internal/model"
	"github.com/Veraticus/panel-ledger/internal/testutil"
)

type cliResult struct {
	err    error
	stdout string
	stderr string
}

// runCLI executes the root command against dbPath with fresh global state.
func runCLI(t *testing.T, dbPath, stdin string, args ...string) cliResult {
	t.Helper()

	viper.Reset()
	cfgFile = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, args...))

	err := root.ExecuteContext(context.Background())
	return cliResult{err: err, stdout: stdout.String(), stderr: stderr.String()}
}

// seededDB creates an on-disk database holding actions and returns its path.
func seededDB(t *testing.T, actions []model.ActionRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{Path: path, Actions: actions})
	require.NoError(t, db.Storage.Close())
	return path
}

func decodeLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		records = append(records, rec)
	}
	return records
}

func TestVersionCmd(t *testing.T) {
	res := runCLI(t, filepath.Join(t.TempDir(), "ledger.db"), "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "ledger dev")
}

func TestClassifyCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	tests := []struct {
		name      string
		stdin     string
		args      []string
		wantTypes []string
	}{
		{
			name:      "arguments",
			args:      []string{"classify", "--observed-at", "2025-03-14T18:30:00Z", testutil.DepositLine, testutil.LoginLine},
			wantTypes: []string{"money_deposit", "other"},
		},
		{
			name:      "stdin skips non actions",
			stdin:     testutil.PurchaseLine + "\n\nServer restart programat la ora 04:00\n" + testutil.NoIDLine + "\n",
			args:      []string{"classify"},
			wantTypes: []string{"property_bought", "unknown"},
		},
		{
			name:      "include skipped",
			stdin:     "Server restart programat la ora 04:00\n",
			args:      []string{"classify", "--include-skipped"},
			wantTypes: []string{"not_an_action"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, dbPath, tt.stdin, tt.args...)
			require.NoError(t, res.err)

			records := decodeLines(t, res.stdout)
			require.Len(t, records, len(tt.wantTypes))
			for i, want := range tt.wantTypes {
				assert.Equal(t, want, records[i]["action_type"])
			}
		})
	}

	t.Run("deposit fields", func(t *testing.T) {
		res := runCLI(t, dbPath, "", "classify", "--observed-at", "2025-03-14T18:30:00Z", testutil.DepositLine)
		require.NoError(t, res.err)
		records := decodeLines(t, res.stdout)
		require.Len(t, records, 1)
		assert.Equal(t, "209261", records[0]["player_id"])
		assert.EqualValues(t, 131000000, records[0]["amount"])
		assert.EqualValues(t, 1310000, records[0]["fee"])
		assert.Equal(t, "2025-03-14T18:30:00Z", records[0]["observed_at"])
	})

	t.Run("bad observed at", func(t *testing.T) {
		res := runCLI(t, dbPath, "", "classify", "--observed-at", "yesterday", testutil.DepositLine)
		assert.Error(t, res.err)
	})
}

func TestMigrateCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fresh.db")

	res := runCLI(t, dbPath, "", "migrate", "--status")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Current version: 0")
	assert.Contains(t, res.stdout, "Migrations pending")

	res = runCLI(t, dbPath, "", "migrate")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "schema version 2")

	res = runCLI(t, dbPath, "", "migrate", "--status")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Current version: 2")
	assert.NotContains(t, res.stdout, "Migrations pending")
}

func TestReclassifyCmd(t *testing.T) {
	dbPath := seededDB(t, testutil.NewActions().
		Deposits(3).
		Unknown(testutil.LoginLine).
		Typed(testutil.WarningLine, model.ActionOther).
		Build())

	preview := runCLI(t, dbPath, "", "reclassify", "--no-progress")
	require.NoError(t, preview.err)
	assert.Contains(t, preview.stdout, "Reclassification preview")
	assert.Contains(t, preview.stdout, "Dry run, nothing written")
	assert.Contains(t, preview.stdout, "money_deposit")

	stats := runCLI(t, dbPath, "", "stats")
	require.NoError(t, stats.err)
	assert.Contains(t, stats.stdout, "5 stored actions")
	assert.Contains(t, stats.stdout, "unknown")

	applied := runCLI(t, dbPath, "", "reclassify", "--execute", "--batch-size", "2")
	require.NoError(t, applied.err)
	assert.Contains(t, applied.stdout, "Reclassification complete")
	assert.Contains(t, applied.stdout, "Checkpoint auto-reclassify")

	history := runCLI(t, dbPath, "", "reclassify", "--history")
	require.NoError(t, history.err)
	assert.Contains(t, history.stdout, "dry run")
	assert.Contains(t, history.stdout, "execute")

	checkpoints := runCLI(t, dbPath, "", "checkpoint", "list")
	require.NoError(t, checkpoints.err)
	assert.Contains(t, checkpoints.stdout, "auto")

	player := runCLI(t, dbPath, "", "actions", "--player", "1001", "--json")
	require.NoError(t, player.err)
	records := decodeLines(t, player.stdout)
	require.Len(t, records, 1)
	assert.Equal(t, "money_deposit", records[0]["action_type"])
}

func TestReclassifyCmd_RejectsSpecificType(t *testing.T) {
	dbPath := seededDB(t, nil)
	res := runCLI(t, dbPath, "", "reclassify", "--type", "money_deposit")
	assert.Error(t, res.err)

	res = runCLI(t, dbPath, "", "reclassify", "--type", "bogus")
	assert.Error(t, res.err)
}

func TestCheckpointCmds(t *testing.T) {
	dbPath := seededDB(t, testutil.NewActions().Deposits(2).Build())

	res := runCLI(t, dbPath, "", "checkpoint", "create", "--tag", "before-rules", "-d", "baseline")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "before-rules")
	assert.Contains(t, res.stdout, "2 actions")

	res = runCLI(t, dbPath, "n\n", "checkpoint", "delete", "before-rules")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Deletion cancelled")

	res = runCLI(t, dbPath, "y\n", "checkpoint", "restore", "before-rules")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Restored from checkpoint")

	res = runCLI(t, dbPath, "", "checkpoint", "delete", "--force", "before-rules")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Deleted checkpoint")

	res = runCLI(t, dbPath, "", "checkpoint", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No checkpoints found")
}

func TestRulesCmds(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	res := runCLI(t, dbPath, "", "rules", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "money_deposit")
	assert.Contains(t, res.stdout, "warning_received")

	res = runCLI(t, dbPath, "", "rules", "test", testutil.DepositLine)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "matched")
	assert.Contains(t, res.stdout, `"player_id": "209261"`)

	res = runCLI(t, dbPath, "", "rules", "test", "Server restart programat la ora 04:00")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Not an action")
}

func TestScrapeCmd(t *testing.T) {
	page := `<html><body><ul id="activity">
		<li>` + testutil.DepositLine + ` 2025-03-14 18:30:00</li>
		<li>` + testutil.PurchaseLine + ` 2025-03-14 18:29:41</li>
		<li>` + testutil.NoIDLine + ` 2025-03-14 18:29:02</li>
	</ul></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	t.Setenv("LEDGER_SCRAPER_BASE_URL", srv.URL)

	dry := runCLI(t, dbPath, "", "scrape", "--dry-run")
	require.NoError(t, dry.err)
	assert.Contains(t, dry.stdout, "3 lines (dry run")

	first := runCLI(t, dbPath, "", "scrape")
	require.NoError(t, first.err)
	assert.Contains(t, first.stdout, "3 new")
	assert.Contains(t, first.stdout, "1 new lines were not recognized")

	// Embedded timestamps make the lines identical across separate runs.
	second := runCLI(t, dbPath, "", "scrape")
	require.NoError(t, second.err)
	assert.Contains(t, second.stdout, "0 new, 3 already stored")
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("LEDGER_RECLASSIFY_BATCH_SIZE", "0")
	res := runCLI(t, filepath.Join(t.TempDir(), "ledger.db"), "", "stats")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "configuration is invalid")
}
