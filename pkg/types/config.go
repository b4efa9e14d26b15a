package types

import (
	"errors"
	"fmt"
)

// Config holds everything the storagereport commands read from config.yaml.
type Config struct {
	DataDir           string         `mapstructure:"data_dir"`
	CollaboratorsFile string         `mapstructure:"collaborators_file"`
	Collaborators     []Collaborator `mapstructure:"collaborators"`
	S3                S3Config       `mapstructure:"s3"`
	Mail              MailConfig     `mapstructure:"mail"`
	Snapshot          SnapshotConfig `mapstructure:"snapshot"`
	Metrics           MetricsConfig  `mapstructure:"metrics"`
	Job               JobConfig      `mapstructure:"job"`
}

// S3Config describes the S3-compatible endpoint that holds collaborator buckets.
type S3Config struct {
	URL             string `mapstructure:"url"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	Region          string `mapstructure:"region"`
	Secure          bool   `mapstructure:"secure"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Parallelism     int    `mapstructure:"parallelism"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
}

// MailConfig holds report recipients and the SMTP relay.
type MailConfig struct {
	To       []string `mapstructure:"to"`
	CC       []string `mapstructure:"cc"`
	From     string   `mapstructure:"from"`
	ReplyTo  string   `mapstructure:"reply_to"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	StartTLS bool     `mapstructure:"starttls"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
}

// SnapshotConfig controls how far back the previous snapshot is searched.
type SnapshotConfig struct {
	LookbackDays int `mapstructure:"lookback_days"`
}

// MetricsConfig controls Prometheus textfile output. An empty Textfile
// disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// JobConfig holds the batch-scheduler submit settings for the daily job.
type JobConfig struct {
	Executable      string         `mapstructure:"executable"`
	Arguments       string         `mapstructure:"arguments"`
	CronMinute      string         `mapstructure:"cron_minute"`
	CronHour        string         `mapstructure:"cron_hour"`
	CronDayOfMonth  string         `mapstructure:"cron_day_of_month"`
	CronMonth       string         `mapstructure:"cron_month"`
	CronDayOfWeek   string         `mapstructure:"cron_day_of_week"`
	HoldOnExit      bool           `mapstructure:"hold_on_exit"`
	ReleaseAfter    int            `mapstructure:"release_after"`
	RequestCPUs     int            `mapstructure:"request_cpus"`
	RequestMemoryMB int            `mapstructure:"request_memory_mb"`
	RequestDiskMB   int            `mapstructure:"request_disk_mb"`
	Output          string         `mapstructure:"output"`
	Error           string         `mapstructure:"error"`
	Log             string         `mapstructure:"log"`
	BatchName       string         `mapstructure:"batch_name"`
	Attributes      []JobAttribute `mapstructure:"attributes"`
}

// JobAttribute is a custom attribute attached to the submitted job. It is
// a list entry rather than a map key so the name keeps its case.
type JobAttribute struct {
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
}

// Config validation errors.
var (
	ErrS3URLEmpty           = errors.New("s3 url must not be empty")
	ErrParallelismInvalid   = errors.New("s3 parallelism must be positive")
	ErrMaxAttemptsInvalid   = errors.New("s3 max attempts must be positive")
	ErrMailRecipientsEmpty  = errors.New("mail needs at least one recipient")
	ErrMailSenderEmpty      = errors.New("mail sender must not be empty")
	ErrMailHostEmpty        = errors.New("mail smtp host must not be empty")
	ErrLookbackInvalid      = errors.New("snapshot lookback must be positive")
	ErrCollaboratorNameless = errors.New("collaborator name must not be empty")
)

// Validate checks the settings every command depends on. S3 and mail
// settings are checked by ValidateS3 and ValidateMail because only the
// daily run needs them.
func (c Config) Validate() error {
	if c.Snapshot.LookbackDays <= 0 {
		return ErrLookbackInvalid
	}
	for _, collab := range c.Collaborators {
		if collab.Name == "" {
			return ErrCollaboratorNameless
		}
	}
	return nil
}

// ValidateS3 checks the S3 section.
func (c Config) ValidateS3() error {
	if c.S3.URL == "" {
		return ErrS3URLEmpty
	}
	if c.S3.Parallelism <= 0 {
		return ErrParallelismInvalid
	}
	if c.S3.MaxAttempts <= 0 {
		return ErrMaxAttemptsInvalid
	}
	return nil
}

// ValidateMail checks the mail section.
func (c Config) ValidateMail() error {
	if len(c.Mail.To) == 0 {
		return ErrMailRecipientsEmpty
	}
	if c.Mail.From == "" {
		return ErrMailSenderEmpty
	}
	if c.Mail.SMTPHost == "" {
		return ErrMailHostEmpty
	}
	if c.Mail.SMTPPort <= 0 || c.Mail.SMTPPort > 65535 {
		return fmt.Errorf("mail smtp port %d out of range", c.Mail.SMTPPort)
	}
	return nil
}
