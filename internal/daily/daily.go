// Package daily runs one storage report: snapshot every bucket, persist
// the snapshot, compare it with the most recent earlier one and mail the
// result.
package daily

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/storagereport/internal/logging"
	"github.com/mesh-intelligence/storagereport/internal/mail"
	"github.com/mesh-intelligence/storagereport/internal/metrics"
	"github.com/mesh-intelligence/storagereport/internal/report"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

type (
	// SnapshotBuilder scans the collaborators' buckets.
	SnapshotBuilder interface {
		Build(ctx context.Context, collabs []types.Collaborator, runID string) (types.Snapshot, error)
	}

	// SnapshotStore persists snapshots and finds the previous one.
	SnapshotStore interface {
		Previous(now time.Time, lookback int) (types.Snapshot, error)
		Save(snap types.Snapshot) (string, error)
	}

	// Params wires a Job. Sender, Recorder and MetricsTextfile are optional:
	// a nil Sender skips mail, an empty MetricsTextfile skips metrics.
	Params struct {
		Collaborators   []types.Collaborator
		Store           SnapshotStore
		Builder         SnapshotBuilder
		Sender          mail.Sender
		Mail            types.MailConfig
		LookbackDays    int
		Recorder        *metrics.Recorder
		MetricsTextfile string
		Logger          *zap.Logger
		Now             func() time.Time
	}

	// Job is the daily snapshot, compare and mail run.
	Job struct {
		params Params
		logger *zap.Logger
		now    func() time.Time
	}

	// Result describes a finished run.
	Result struct {
		RunID        string
		SnapshotPath string
		Previous     types.Snapshot
		Current      types.Snapshot
		Report       report.Report
		Message      mail.Message
		Mailed       bool
	}
)

// NewJob returns a Job. A nil Logger or Now falls back to a no-op logger
// and time.Now.
func NewJob(params Params) *Job {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Job{
		params: params,
		logger: logging.WithPackage(logger),
		now:    now,
	}
}

// Run executes the pipeline. Any failure aborts the run; a snapshot that
// was already saved stays on disk.
func (j *Job) Run(ctx context.Context, runID string) (Result, error) {
	res := Result{RunID: runID}
	logger := j.logger.With(zap.String("run_id", runID))

	previous, err := j.params.Store.Previous(j.now(), j.params.LookbackDays)
	if err != nil {
		return res, fmt.Errorf("load previous snapshot: %w", err)
	}
	res.Previous = previous
	if previous.IsEmpty() {
		logger.Info("no previous snapshot", zap.Int("lookback_days", j.params.LookbackDays))
	} else {
		logger.Info("previous snapshot", zap.String("date", previous.Date()))
	}

	current, err := j.params.Builder.Build(ctx, j.params.Collaborators, runID)
	if err != nil {
		return res, fmt.Errorf("build snapshot: %w", err)
	}
	res.Current = current

	path, err := j.params.Store.Save(current)
	if err != nil {
		return res, fmt.Errorf("save snapshot: %w", err)
	}
	res.SnapshotPath = path
	logger.Info("saved snapshot", zap.String("path", path))

	rep := report.Compare(previous, current)
	res.Report = rep

	htmlBody, err := rep.HTML()
	if err != nil {
		return res, fmt.Errorf("render report: %w", err)
	}
	textBody, err := report.PlainText(htmlBody)
	if err != nil {
		return res, fmt.Errorf("render plain text: %w", err)
	}
	logger.Debug(textBody)

	res.Message = mail.Envelope(j.params.Mail, rep.Subject(), htmlBody, textBody)
	if j.params.Sender != nil {
		if err := j.params.Sender.Send(ctx, res.Message); err != nil {
			return res, fmt.Errorf("send report: %w", err)
		}
		res.Mailed = true
		logger.Info("sent report", zap.String("subject", res.Message.Subject))
	}

	if j.params.Recorder != nil && j.params.MetricsTextfile != "" {
		j.params.Recorder.ObserveSnapshot(current)
		j.params.Recorder.ObserveSuccess(j.now())
		if err := j.params.Recorder.WriteTextfile(j.params.MetricsTextfile); err != nil {
			return res, err
		}
	}

	return res, nil
}

// Task adapts Run to the scheduler's task signature.
func (j *Job) Task(ctx context.Context, runID string) error {
	_, err := j.Run(ctx, runID)
	return err
}
