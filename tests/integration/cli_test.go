package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		buildErr = err
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "storagereport-test-*")
	if err != nil {
		buildErr = err
		os.Exit(1)
	}
	binPath := filepath.Join(tmpDir, "storagereport")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/storagereport")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = &BuildError{Err: err, Output: string(output)}
	} else {
		storagereportBin = binPath
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func TestVersion_ExitsZero(t *testing.T) {
	env := NewTestEnv(t)

	result := env.MustRun("version")
	assert.Contains(t, result.Stdout, "storagereport v")
	assert.Empty(t, result.Stderr)
	assert.NoDirExists(t, env.Config, "version must not touch the config directory")
}

func TestInit_JSON(t *testing.T) {
	env := NewTestEnv(t)

	result := env.MustRun("--json", "init")
	paths := ParseJSON[map[string]string](t, result.Stdout)
	assert.Equal(t, filepath.Join(env.Config, "config.yaml"), paths["config"])
	assert.Equal(t, filepath.Join(env.Config, "collaborators.csv"), paths["collaborators"])
	assert.Equal(t, filepath.Join(env.DataDir, "snapshots"), paths["snapshots"])

	assert.FileExists(t, paths["config"])
	assert.FileExists(t, paths["collaborators"])
	assert.DirExists(t, paths["snapshots"])
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		config string
		args   []string
		code   int
		stderr string
	}{
		{
			name: "unknown command",
			args: []string{"frobnicate"},
			code: 1,
		},
		{
			name:   "daily without s3 endpoint",
			args:   []string{"daily", "--no-mail"},
			code:   1,
			stderr: "Error:",
		},
		{
			name:   "invalid lookback",
			config: "snapshot:\n  lookback_days: 0\n",
			args:   []string{"snapshot", "list"},
			code:   1,
			stderr: "lookback",
		},
		{
			name:   "malformed config.yaml",
			config: "snapshot: [\n",
			args:   []string{"snapshot", "list"},
			code:   2,
			stderr: "Error:",
		},
		{
			name:   "missing snapshot",
			args:   []string{"snapshot", "show", "2020-01-01"},
			code:   1,
			stderr: "2020-01-01",
		},
		{
			name: "empty snapshot list",
			args: []string{"snapshot", "list"},
			code: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewTestEnv(t)
			if tt.config != "" {
				env.WriteConfig(tt.config)
			}

			result := env.Run(tt.args...)
			assert.Equal(t, tt.code, result.ExitCode, "stdout: %s\nstderr: %s", result.Stdout, result.Stderr)
			if tt.stderr != "" {
				assert.Contains(t, result.Stderr, tt.stderr)
			}
		})
	}
}

func TestDataDir_Precedence(t *testing.T) {
	env := NewTestEnv(t)
	fromConfig := filepath.Join(env.TempDir, "from-config")
	fromEnv := filepath.Join(env.TempDir, "from-env")
	work := filepath.Join(env.TempDir, "work")
	require.NoError(t, os.MkdirAll(work, 0o755))

	// CWD default.
	result := env.RunIn(work, "--config-dir", env.Config, "--json", "init")
	require.Equal(t, 0, result.ExitCode, result.Stderr)
	assert.DirExists(t, filepath.Join(work, ".storagereport", "snapshots"))

	// Environment beats the CWD default.
	env.Env = []string{"STORAGEREPORT_DATA_DIR=" + fromEnv}
	result = env.RunIn(work, "--config-dir", env.Config, "init")
	require.Equal(t, 0, result.ExitCode, result.Stderr)
	assert.DirExists(t, filepath.Join(fromEnv, "snapshots"))

	// config.yaml beats the environment.
	env.WriteConfig("data_dir: " + fromConfig + "\n")
	result = env.RunIn(work, "--config-dir", env.Config, "init")
	require.Equal(t, 0, result.ExitCode, result.Stderr)
	assert.DirExists(t, filepath.Join(fromConfig, "snapshots"))

	// The flag beats everything.
	result = env.Run("init")
	require.Equal(t, 0, result.ExitCode, result.Stderr)
	assert.DirExists(t, filepath.Join(env.DataDir, "snapshots"))
}

func TestConfigDir_FromEnvironment(t *testing.T) {
	env := NewTestEnv(t)
	env.Env = []string{"STORAGEREPORT_CONFIG_DIR=" + env.Config}

	result := env.RunIn(env.TempDir, "--data-dir", env.DataDir, "init")
	require.Equal(t, 0, result.ExitCode, result.Stderr)
	assert.FileExists(t, filepath.Join(env.Config, "config.yaml"))
}

func TestJobspec_DefaultsToRunningBinary(t *testing.T) {
	env := NewTestEnv(t)

	result := env.MustRun("jobspec")
	first, _, _ := strings.Cut(result.Stdout, "\n")
	assert.True(t, strings.HasPrefix(first, "executable = "), first)
	assert.True(t, strings.HasSuffix(first, "storagereport"), first)
	assert.Contains(t, result.Stdout, "+IsStorageReport = true\n")
	assert.True(t, strings.HasSuffix(result.Stdout, "queue\n"))
}

func TestVerify_DetectsChangedCopy(t *testing.T) {
	env := NewTestEnv(t)
	src := filepath.Join(env.TempDir, "src")
	dst := filepath.Join(env.TempDir, "dst")
	for _, root := range []string{src, dst} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "sub", "b.txt"), []byte("y"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "new.txt"), nil, 0o644))

	// Copies keep their timestamps, otherwise every file differs in mtime.
	stamp := time.Date(2026, 3, 10, 5, 30, 0, 0, time.UTC)
	for _, root := range []string{src, dst} {
		for _, name := range []string{"a.txt", filepath.Join("sub", "b.txt")} {
			require.NoError(t, os.Chtimes(filepath.Join(root, name), stamp, stamp))
		}
	}

	srcList := filepath.Join(env.TempDir, "src.list")
	dstList := filepath.Join(env.TempDir, "dst.list")
	dstDB := filepath.Join(env.TempDir, "dst.db")

	env.MustRun("verify", "hash", "-o", srcList, src)
	env.MustRun("verify", "hash", "-o", dstList, dst)
	env.MustRun("verify", "convert", dstList, dstDB)

	result := env.MustRun("verify", "compare", srcList, dstDB)
	assert.Contains(t, result.Stdout, "OK \"a.txt\"\n")
	assert.Contains(t, result.Stdout, "MISMATCH {\"path\":\""+filepath.Join("sub", "b.txt")+"\",\"kind\":\"FILE\",\"diff\":[\"digest\"]}\n")
	assert.Contains(t, result.Stdout, "MISSING \"new.txt\"\n")

	// Converting into an existing database fails.
	result = env.Run("verify", "convert", dstList, dstDB)
	assert.NotEqual(t, 0, result.ExitCode)
}
