package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storagereport/internal/paths"
	"github.com/mesh-intelligence/storagereport/internal/snapshot"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	return env{
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{newLogger: func(bool) (*zap.Logger, error) { return zap.NewNop(), nil }}
	root := newRootCmd(a)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e env) writeConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, configFileExt), []byte(content), 0o644))
}

func (e env) saveSnapshots(t *testing.T) {
	t.Helper()
	store := snapshot.NewStore(paths.SnapshotDir(e.dataDir))

	day1 := time.Date(2026, 3, 9, 5, 30, 0, 0, time.Local)
	day2 := day1.Add(25 * time.Hour)
	for _, snap := range []types.Snapshot{
		{
			Meta: types.SnapshotMeta{StartTime: types.FloatUnix(day1), EndTime: types.FloatUnix(day1.Add(time.Minute))},
			Entries: []types.Entry{
				{Name: "Alpha", Bucket: "alpha", Files: 10, Bytes: 2048},
			},
		},
		{
			Meta: types.SnapshotMeta{StartTime: types.FloatUnix(day2), EndTime: types.FloatUnix(day2.Add(time.Minute)), RunID: "run-2"},
			Entries: []types.Entry{
				{Name: "Alpha", Bucket: "alpha", Files: 12, Bytes: 3072},
				{Name: "Beta", Bucket: "", Files: 0, Bytes: 0},
			},
		},
	} {
		_, err := store.Save(snap)
		require.NoError(t, err)
	}
}

func TestVersion(t *testing.T) {
	out, err := newEnv(t).run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "storagereport v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInit_CreatesConfigAndCollaborators(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")

	cfg, err := os.ReadFile(filepath.Join(e.configDir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(cfg))

	csv, err := os.ReadFile(filepath.Join(e.configDir, defaultCollaboratorsFile))
	require.NoError(t, err)
	assert.Equal(t, "name,s3_bucket\n", string(csv))

	assert.DirExists(t, paths.SnapshotDir(e.dataDir))

	_, err = e.run(t, "init")
	require.NoError(t, err)
}

func TestDefaultConfig_Decodes(t *testing.T) {
	e := newEnv(t)
	v, err := loadConfig(e.configDir)
	require.NoError(t, err)

	cfg, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Snapshot.LookbackDays)
	assert.Equal(t, 4, cfg.S3.Parallelism)
	assert.True(t, cfg.S3.Secure)
	assert.Equal(t, "30", cfg.Job.CronMinute)
	assert.Equal(t, "5", cfg.Job.CronHour)
	assert.Equal(t, 3600, cfg.Job.ReleaseAfter)
	assert.Equal(t, []types.JobAttribute{{Name: "IsStorageReport", Value: "true"}}, cfg.Job.Attributes)
}

func TestConfig_EnvironmentOverrides(t *testing.T) {
	e := newEnv(t)
	t.Setenv("STORAGEREPORT_S3_URL", "s3.example.org:9000")
	t.Setenv("STORAGEREPORT_MAIL_SMTP_PORT", "587")

	v, err := loadConfig(e.configDir)
	require.NoError(t, err)
	cfg, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "s3.example.org:9000", cfg.S3.URL)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
}

func TestConfig_InvalidIsUserError(t *testing.T) {
	e := newEnv(t)
	t.Setenv("STORAGEREPORT_SNAPSHOT_LOOKBACK_DAYS", "0")

	_, err := e.run(t, "snapshot", "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrLookbackInvalid)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestConfigDataDir_RanksBelowFlag(t *testing.T) {
	e := newEnv(t)
	e.writeConfig(t, "data_dir: "+filepath.Join(t.TempDir(), "ignored")+"\n")
	e.saveSnapshots(t)

	out, err := e.run(t, "snapshot", "list")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09\n2026-03-10\n", out)
}

func TestSnapshotList_JSON(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "--json", "snapshot", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	e.saveSnapshots(t)
	out, err = e.run(t, "--json", "snapshot", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `["2026-03-09","2026-03-10"]`, out)
}

func TestSnapshotShow(t *testing.T) {
	e := newEnv(t)
	e.saveSnapshots(t)

	out, err := e.run(t, "snapshot", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "date: 2026-03-10")
	assert.Contains(t, out, "run: run-2")
	assert.Contains(t, out, "3.0 KiB")

	out, err = e.run(t, "--json", "snapshot", "show", "2026-03-09")
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	assert.Contains(t, raw, types.MetaKey)
	assert.Contains(t, raw, "Alpha")

	_, err = e.run(t, "snapshot", "show", "2026-01-01")
	assert.ErrorIs(t, err, types.ErrSnapshotNotFound)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = e.run(t, "snapshot", "show", "yesterday")
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestReport_PlainAndHTML(t *testing.T) {
	e := newEnv(t)
	e.saveSnapshots(t)

	out, err := e.run(t, "report")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Subject: (2 files, +1.0 KiB) S3 Storage Report for 2026-03-10\n\n"), out)
	assert.Contains(t, out, "In the past 1 days and 1 hours...")
	assert.Contains(t, out, "Alpha | 12 | +2 | 3.0 KiB | +1.0 KiB")

	out, err = e.run(t, "report", "--html", "--previous", "2026-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, "<h3>S3 buffer</h3>")
	assert.Contains(t, out, "initial snapshot")
}

func TestReport_JSONUsesSnakeCase(t *testing.T) {
	e := newEnv(t)
	e.saveSnapshots(t)

	out, err := e.run(t, "--json", "report")
	require.NoError(t, err)

	var got struct {
		Date    string           `json:"date"`
		Rows    []map[string]any `json:"rows"`
		Total   map[string]any   `json:"total"`
		Elapsed float64          `json:"elapsed_seconds"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2026-03-10", got.Date)
	assert.Equal(t, 25.0*3600, got.Elapsed)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "Alpha", got.Rows[0]["name"])
	assert.Equal(t, 2.0, got.Rows[0]["delta_files"])
	assert.Equal(t, 1024.0, got.Rows[0]["delta_bytes"])
	assert.Equal(t, 3072.0, got.Total["bytes"])
	assert.NotContains(t, out, "DeltaFiles")
}

func TestReport_NoSnapshots(t *testing.T) {
	_, err := newEnv(t).run(t, "report")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestDaily_MissingS3IsUserError(t *testing.T) {
	e := newEnv(t)
	e.writeConfig(t, "collaborators:\n  - name: Alpha\n    s3_bucket: alpha\n")

	_, err := e.run(t, "daily", "--no-mail")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrS3URLEmpty)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestDaily_MissingCollaboratorsIsUserError(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "init")
	require.NoError(t, err)

	_, err = e.run(t, "daily", "--no-mail")
	assert.ErrorIs(t, err, types.ErrNoCollaborators)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestDaily_MissingMailIsUserError(t *testing.T) {
	e := newEnv(t)
	e.writeConfig(t, "collaborators:\n  - name: Alpha\n    s3_bucket: alpha\ns3:\n  url: localhost:9000\n")

	_, err := e.run(t, "daily")
	assert.ErrorIs(t, err, types.ErrMailRecipientsEmpty)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestJobspec(t *testing.T) {
	e := newEnv(t)
	e.writeConfig(t, "job:\n  executable: /opt/storagereport/bin/storagereport\n")

	out, err := e.run(t, "jobspec")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "executable = /opt/storagereport/bin/storagereport\narguments = \"daily\"\n"), out)
	assert.Contains(t, out, "cron_minute = 30\ncron_hour = 5\n")
	assert.Contains(t, out, "periodic_release = (time() - EnteredCurrentStatus) > 3600\n")
	assert.True(t, strings.HasSuffix(out, "queue\n"))

	path := filepath.Join(t.TempDir(), "daily.sub")
	_, err = e.run(t, "jobspec", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestJobspec_InvalidCronIsUserError(t *testing.T) {
	e := newEnv(t)
	e.writeConfig(t, "job:\n  executable: /bin/true\n  cron_hour: \"27\"\n")

	_, err := e.run(t, "jobspec")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestVerify_HashConvertCompare(t *testing.T) {
	e := newEnv(t)
	tree := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tree, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(tree, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "sub", "b.txt"), []byte("x"), 0o644))

	work := t.TempDir()
	listing := filepath.Join(work, "src.list")
	db := filepath.Join(work, "src.db")
	result := filepath.Join(work, "result.txt")

	_, err := e.run(t, "verify", "hash", "-o", listing, tree)
	require.NoError(t, err)

	_, err = e.run(t, "verify", "convert", listing, db)
	require.NoError(t, err)

	_, err = e.run(t, "verify", "compare", "-o", result, listing, db)
	require.NoError(t, err)

	data, err := os.ReadFile(result)
	require.NoError(t, err)
	assert.Equal(t, "OK \"sub\"\nOK \"a.txt\"\nOK \""+filepath.Join("sub", "b.txt")+"\"\n", string(data))
}

func TestVerify_MissingDatabaseIsUserError(t *testing.T) {
	e := newEnv(t)
	listing := filepath.Join(t.TempDir(), "src.list")
	require.NoError(t, os.WriteFile(listing, []byte("ROOT \"/src\"\n"), 0o644))

	_, err := e.run(t, "verify", "compare", listing, filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(assert.AnError))
	assert.Equal(t, exitSysError, exitCode(sysError(assert.AnError)))
	assert.Nil(t, userError(nil))
}
