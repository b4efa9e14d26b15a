package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/storagereport/internal/jobspec"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "STORAGEREPORT"

	cfgKeyDataDir = "data_dir"

	defaultCollaboratorsFile = "collaborators.csv"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# storagereport configuration
# Every key can be overridden from the environment, e.g. STORAGEREPORT_S3_URL.

# Data directory for snapshots (optional; overridable by --data-dir)
# data_dir:

# Collaborators: a CSV file with a name,s3_bucket header, relative to this
# directory, or an inline list that takes precedence over the file.
collaborators_file: collaborators.csv
# collaborators:
#   - name: Example Lab
#     s3_bucket: example-lab

s3:
  url: ""
  access_key: ""
  secret_key: ""
  region: us-east-1
  secure: true
  # credentials_file: s3-credentials.json
  parallelism: 4
  max_attempts: 4

mail:
  to: []
  cc: []
  from: ""
  reply_to: ""
  smtp_host: ""
  smtp_port: 25
  starttls: true

snapshot:
  lookback_days: 90

metrics:
  # textfile: /var/lib/node_exporter/textfile/storagereport.prom
  textfile: ""

job:
  executable: ""
  arguments: daily
  cron_minute: "30"
  cron_hour: "5"
  cron_day_of_month: "*"
  cron_month: "*"
  cron_day_of_week: "*"
  hold_on_exit: true
  release_after: 3600
  request_cpus: 1
  request_memory_mb: 128
  request_disk_mb: 128
  output: daily.out
  error: daily.err
  log: daily.log
  batch_name: storagereport-daily
  attributes:
    - name: IsStorageReport
      value: "true"
`

// setDefaults mirrors defaultConfigYAML so a config file with missing keys
// still decodes to a usable configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault("collaborators_file", defaultCollaboratorsFile)

	v.SetDefault("s3.url", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.secure", true)
	v.SetDefault("s3.credentials_file", "")
	v.SetDefault("s3.parallelism", 4)
	v.SetDefault("s3.max_attempts", 4)

	v.SetDefault("mail.to", []string{})
	v.SetDefault("mail.cc", []string{})
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.reply_to", "")
	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 25)
	v.SetDefault("mail.starttls", true)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")

	v.SetDefault("snapshot.lookback_days", 90)
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("job.executable", "")
	v.SetDefault("job.arguments", "daily")
	v.SetDefault("job.cron_minute", jobspec.DefaultCronMinute)
	v.SetDefault("job.cron_hour", jobspec.DefaultCronHour)
	v.SetDefault("job.cron_day_of_month", "*")
	v.SetDefault("job.cron_month", "*")
	v.SetDefault("job.cron_day_of_week", "*")
	v.SetDefault("job.hold_on_exit", true)
	v.SetDefault("job.release_after", jobspec.DefaultReleaseAfter)
	v.SetDefault("job.request_cpus", jobspec.DefaultRequestCPUs)
	v.SetDefault("job.request_memory_mb", jobspec.DefaultRequestMemoryMB)
	v.SetDefault("job.request_disk_mb", jobspec.DefaultRequestDiskMB)
	v.SetDefault("job.output", "daily.out")
	v.SetDefault("job.error", "daily.err")
	v.SetDefault("job.log", "daily.log")
	v.SetDefault("job.batch_name", jobspec.DefaultBatchName)
}

// loadConfig reads config.yaml from the resolved config directory using
// Viper. It creates the config directory and a default config.yaml on
// first run. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	// data_dir is left out: its environment variable ranks below
	// config.yaml and is handled by the paths package.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range v.AllKeys() {
		if key == cfgKeyDataDir {
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// decodeConfig unmarshals the merged configuration and validates it.
func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configDataDir is data_dir as written in config.yaml, if at all.
func configDataDir(v *viper.Viper) string {
	if !v.InConfig(cfgKeyDataDir) {
		return ""
	}
	return v.GetString(cfgKeyDataDir)
}
