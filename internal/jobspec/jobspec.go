// Package jobspec renders the batch-scheduler submit description that runs
// the daily report, and exposes the same schedule and hold policy to the
// in-process scheduler.
package jobspec

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

// Defaults for the daily job: 05:30 every day, held on abnormal exit and
// released an hour after entering the held state.
const (
	DefaultCronMinute      = "30"
	DefaultCronHour        = "5"
	DefaultReleaseAfter    = 3600
	DefaultRequestCPUs     = 1
	DefaultRequestMemoryMB = 128
	DefaultRequestDiskMB   = 128
	DefaultBatchName       = "storagereport-daily"
)

// Descriptor validation errors.
var (
	ErrExecutableEmpty   = errors.New("job executable must not be empty")
	ErrCronInvalid       = errors.New("invalid cron schedule")
	ErrResourceInvalid   = errors.New("job resource requests must be positive")
	ErrReleaseInvalid    = errors.New("release delay must be positive when holding on exit")
	ErrAttributeName     = errors.New("invalid custom attribute name")
	ErrAttributeValue    = errors.New("custom attribute value must not be empty")
	ErrAttributeDup      = errors.New("duplicate custom attribute")
	attributeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Descriptor is the submit description of the daily job.
type Descriptor struct {
	Executable      string
	Arguments       string
	CronMinute      string
	CronHour        string
	CronDayOfMonth  string
	CronMonth       string
	CronDayOfWeek   string
	HoldOnExit      bool
	ReleaseAfter    time.Duration
	RequestCPUs     int
	RequestMemoryMB int
	RequestDiskMB   int
	Output          string
	Error           string
	Log             string
	BatchName       string
	Attributes      []types.JobAttribute
}

// FromConfig converts the job section of config.yaml. Blank cron fields
// default to "*".
func FromConfig(cfg types.JobConfig) Descriptor {
	return Descriptor{
		Executable:      cfg.Executable,
		Arguments:       cfg.Arguments,
		CronMinute:      orStar(cfg.CronMinute),
		CronHour:        orStar(cfg.CronHour),
		CronDayOfMonth:  orStar(cfg.CronDayOfMonth),
		CronMonth:       orStar(cfg.CronMonth),
		CronDayOfWeek:   orStar(cfg.CronDayOfWeek),
		HoldOnExit:      cfg.HoldOnExit,
		ReleaseAfter:    time.Duration(cfg.ReleaseAfter) * time.Second,
		RequestCPUs:     cfg.RequestCPUs,
		RequestMemoryMB: cfg.RequestMemoryMB,
		RequestDiskMB:   cfg.RequestDiskMB,
		Output:          cfg.Output,
		Error:           cfg.Error,
		Log:             cfg.Log,
		BatchName:       cfg.BatchName,
		Attributes:      cfg.Attributes,
	}
}

func orStar(s string) string {
	if strings.TrimSpace(s) == "" {
		return "*"
	}
	return strings.TrimSpace(s)
}

// CronSpec is the standard five-field cron expression of the schedule.
func (d Descriptor) CronSpec() string {
	return strings.Join([]string{
		d.CronMinute,
		d.CronHour,
		d.CronDayOfMonth,
		d.CronMonth,
		d.CronDayOfWeek,
	}, " ")
}

// Schedule parses CronSpec.
func (d Descriptor) Schedule() (cron.Schedule, error) {
	sched, err := cron.ParseStandard(d.CronSpec())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrCronInvalid, d.CronSpec(), err)
	}
	return sched, nil
}

// Validate checks what the scheduler's submit language would reject.
func (d Descriptor) Validate() error {
	if d.Executable == "" {
		return ErrExecutableEmpty
	}
	if _, err := d.Schedule(); err != nil {
		return err
	}
	if d.RequestCPUs <= 0 || d.RequestMemoryMB <= 0 || d.RequestDiskMB <= 0 {
		return ErrResourceInvalid
	}
	if d.HoldOnExit && d.ReleaseAfter <= 0 {
		return ErrReleaseInvalid
	}
	seen := make(map[string]bool, len(d.Attributes))
	for _, attr := range d.Attributes {
		if !attributeNamePattern.MatchString(attr.Name) {
			return fmt.Errorf("%w: %q", ErrAttributeName, attr.Name)
		}
		if strings.TrimSpace(attr.Value) == "" {
			return fmt.Errorf("%w: %q", ErrAttributeValue, attr.Name)
		}
		// Attribute names are case-insensitive to the scheduler.
		key := strings.ToLower(attr.Name)
		if seen[key] {
			return fmt.Errorf("%w: %q", ErrAttributeDup, attr.Name)
		}
		seen[key] = true
	}
	return nil
}

type (
	renderView struct {
		Descriptor
		Cron        []cronField
		ReleaseSecs int64
		// KeepInQueue stops a periodic or held job from leaving the queue
		// when it exits.
		KeepInQueue bool
	}

	cronField struct {
		Key   string
		Value string
	}
)

var submitTemplate = template.Must(template.New("submit").Parse(`executable = {{.Executable}}
{{- if .Arguments}}
arguments = "{{.Arguments}}"
{{- end}}
{{- if .Cron}}
{{range .Cron}}
{{.Key}} = {{.Value}}
{{- end}}
{{- end}}
{{- if .KeepInQueue}}

on_exit_remove = false
{{- end}}
{{- if .HoldOnExit}}
on_exit_hold = (ExitBySignal == True) || (ExitCode != 0)
periodic_release = (time() - EnteredCurrentStatus) > {{.ReleaseSecs}}
{{- end}}

request_cpus = {{.RequestCPUs}}
request_memory = {{.RequestMemoryMB}}MB
request_disk = {{.RequestDiskMB}}MB
{{if .Output}}
output = {{.Output}}
{{- end}}
{{- if .Error}}
error = {{.Error}}
{{- end}}
{{- if .Log}}
log = {{.Log}}
{{- end}}
{{if .BatchName}}
batch_name = "{{.BatchName}}"
{{- end}}
{{- range .Attributes}}
+{{.Name}} = {{.Value}}
{{- end}}

queue
`))

// Render writes the submit description. The descriptor is validated first.
func (d Descriptor) Render(w io.Writer) error {
	if err := d.Validate(); err != nil {
		return err
	}

	view := renderView{
		Descriptor:  d,
		ReleaseSecs: int64(d.ReleaseAfter / time.Second),
	}
	for _, f := range []cronField{
		{"cron_minute", d.CronMinute},
		{"cron_hour", d.CronHour},
		{"cron_day_of_month", d.CronDayOfMonth},
		{"cron_month", d.CronMonth},
		{"cron_day_of_week", d.CronDayOfWeek},
	} {
		if f.Value != "*" {
			view.Cron = append(view.Cron, f)
		}
	}
	view.KeepInQueue = d.HoldOnExit || len(view.Cron) > 0

	if err := submitTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render submit description: %w", err)
	}
	return nil
}
