package jobspec

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

func dailyConfig() types.JobConfig {
	return types.JobConfig{
		Executable:      "/usr/local/bin/storagereport",
		Arguments:       "daily",
		CronMinute:      DefaultCronMinute,
		CronHour:        DefaultCronHour,
		HoldOnExit:      true,
		ReleaseAfter:    DefaultReleaseAfter,
		RequestCPUs:     DefaultRequestCPUs,
		RequestMemoryMB: DefaultRequestMemoryMB,
		RequestDiskMB:   DefaultRequestDiskMB,
		Output:          "daily.out",
		Error:           "daily.err",
		Log:             "daily.log",
		BatchName:       DefaultBatchName,
		Attributes:      []types.JobAttribute{{Name: "IsStorageReport", Value: "true"}},
	}
}

func TestFromConfig_DefaultsBlankCronFieldsToStar(t *testing.T) {
	d := FromConfig(dailyConfig())

	assert.Equal(t, "30 5 * * *", d.CronSpec())
	assert.Equal(t, time.Hour, d.ReleaseAfter)
}

func TestDescriptor_Schedule(t *testing.T) {
	d := FromConfig(dailyConfig())

	sched, err := d.Schedule()
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 6, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 3, 2, 5, 30, 0, 0, time.Local), sched.Next(from))
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Descriptor)
		wantErr error
	}{
		{name: "valid", mutate: func(*Descriptor) {}},
		{
			name:    "no executable",
			mutate:  func(d *Descriptor) { d.Executable = "" },
			wantErr: ErrExecutableEmpty,
		},
		{
			name:    "bad minute",
			mutate:  func(d *Descriptor) { d.CronMinute = "61" },
			wantErr: ErrCronInvalid,
		},
		{
			name:    "bad day of week",
			mutate:  func(d *Descriptor) { d.CronDayOfWeek = "someday" },
			wantErr: ErrCronInvalid,
		},
		{
			name:    "zero cpus",
			mutate:  func(d *Descriptor) { d.RequestCPUs = 0 },
			wantErr: ErrResourceInvalid,
		},
		{
			name:    "negative disk",
			mutate:  func(d *Descriptor) { d.RequestDiskMB = -1 },
			wantErr: ErrResourceInvalid,
		},
		{
			name:    "hold without release",
			mutate:  func(d *Descriptor) { d.ReleaseAfter = 0 },
			wantErr: ErrReleaseInvalid,
		},
		{
			name: "no hold, no release",
			mutate: func(d *Descriptor) {
				d.HoldOnExit = false
				d.ReleaseAfter = 0
			},
		},
		{
			name:    "attribute name with dash",
			mutate:  func(d *Descriptor) { d.Attributes = []types.JobAttribute{{Name: "Is-Report", Value: "true"}} },
			wantErr: ErrAttributeName,
		},
		{
			name:    "attribute without value",
			mutate:  func(d *Descriptor) { d.Attributes = []types.JobAttribute{{Name: "IsReport", Value: " "}} },
			wantErr: ErrAttributeValue,
		},
		{
			name: "attribute repeated in another case",
			mutate: func(d *Descriptor) {
				d.Attributes = []types.JobAttribute{
					{Name: "IsReport", Value: "true"},
					{Name: "isreport", Value: "false"},
				}
			},
			wantErr: ErrAttributeDup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := FromConfig(dailyConfig())
			tt.mutate(&d)

			err := d.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDescriptor_Render(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FromConfig(dailyConfig()).Render(&buf))

	want := `executable = /usr/local/bin/storagereport
arguments = "daily"

cron_minute = 30
cron_hour = 5

on_exit_remove = false
on_exit_hold = (ExitBySignal == True) || (ExitCode != 0)
periodic_release = (time() - EnteredCurrentStatus) > 3600

request_cpus = 1
request_memory = 128MB
request_disk = 128MB

output = daily.out
error = daily.err
log = daily.log

batch_name = "storagereport-daily"
+IsStorageReport = true

queue
`
	assert.Equal(t, want, buf.String())
}

func TestDescriptor_RenderKeepsAttributeOrderAndSkipsHold(t *testing.T) {
	cfg := dailyConfig()
	cfg.HoldOnExit = false
	cfg.Attributes = []types.JobAttribute{{Name: "Zeta", Value: "1"}, {Name: "Alpha", Value: `"a"`}}

	var buf bytes.Buffer
	require.NoError(t, FromConfig(cfg).Render(&buf))

	out := buf.String()
	assert.NotContains(t, out, "on_exit_hold")
	assert.NotContains(t, out, "periodic_release")
	assert.Contains(t, out, "+Zeta = 1\n+Alpha = \"a\"\n")
	assert.Contains(t, out, "cron_hour = 5\n\non_exit_remove = false\n\nrequest_cpus = 1")
}

func TestDescriptor_RenderOneShotLeavesQueue(t *testing.T) {
	cfg := dailyConfig()
	cfg.HoldOnExit = false
	cfg.CronMinute = ""
	cfg.CronHour = ""

	var buf bytes.Buffer
	require.NoError(t, FromConfig(cfg).Render(&buf))

	out := buf.String()
	assert.NotContains(t, out, "on_exit_remove")
	assert.NotContains(t, out, "cron_")
	assert.Contains(t, out, "arguments = \"daily\"\n\nrequest_cpus = 1")
}

func TestDescriptor_RenderRejectsInvalid(t *testing.T) {
	cfg := dailyConfig()
	cfg.Executable = ""

	var buf bytes.Buffer
	err := FromConfig(cfg).Render(&buf)

	assert.ErrorIs(t, err, ErrExecutableEmpty)
	assert.Empty(t, buf.String())
}
