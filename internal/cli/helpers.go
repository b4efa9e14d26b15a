package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/storagereport/internal/daily"
	"github.com/mesh-intelligence/storagereport/internal/mail"
	"github.com/mesh-intelligence/storagereport/internal/metrics"
	"github.com/mesh-intelligence/storagereport/internal/paths"
	"github.com/mesh-intelligence/storagereport/internal/s3"
	"github.com/mesh-intelligence/storagereport/internal/snapshot"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

// collaboratorsPath is the CSV file named in config.yaml, anchored at the
// config directory.
func (a *app) collaboratorsPath() string {
	name := a.cfg.CollaboratorsFile
	if name == "" {
		name = defaultCollaboratorsFile
	}
	return paths.ResolveRelative(a.configDir, name)
}

// collaborators returns the inline list from config.yaml, or the CSV file
// when the list is empty.
func (a *app) collaborators() ([]types.Collaborator, error) {
	if len(a.cfg.Collaborators) > 0 {
		if err := types.CheckCollaborators(a.cfg.Collaborators); err != nil {
			return nil, err
		}
		return a.cfg.Collaborators, nil
	}

	path := a.collaboratorsPath()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open collaborators: %w", err)
	}
	defer f.Close()

	collabs, err := types.ReadCollaborators(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return collabs, nil
}

func (a *app) store() *snapshot.Store {
	return snapshot.NewStore(paths.SnapshotDir(a.dataDir))
}

// dailyOptions selects how a daily run delivers its report.
type dailyOptions struct {
	// mailTo receives the rendered message instead of SMTP when set.
	mailTo io.Writer
	noMail bool
}

// newDailyJob wires the S3 scanner, the snapshot store, the mail sender
// and the metrics recorder from the loaded configuration. Configuration
// problems are user errors.
func (a *app) newDailyJob(opts dailyOptions, rec *metrics.Recorder) (*daily.Job, error) {
	collabs, err := a.collaborators()
	if err != nil {
		return nil, userError(err)
	}

	s3cfg := a.cfg.S3
	s3cfg.CredentialsFile = paths.ResolveRelative(a.configDir, s3cfg.CredentialsFile)
	if err := s3.ApplyCredentialsFile(&s3cfg); err != nil {
		return nil, userError(err)
	}
	a.cfg.S3 = s3cfg
	if err := a.cfg.ValidateS3(); err != nil {
		return nil, userError(err)
	}

	client, err := s3.NewClient(s3cfg)
	if err != nil {
		return nil, sysError(err)
	}
	scanner := s3.NewScanner(client, a.logger, s3.WithMaxAttempts(s3cfg.MaxAttempts))
	builder := snapshot.NewBuilder(scanner, a.logger, snapshot.WithParallelism(s3cfg.Parallelism))

	var sender mail.Sender
	switch {
	case opts.mailTo != nil:
		sender = &mail.WriterSender{W: opts.mailTo}
	case opts.noMail:
	default:
		if err := a.cfg.ValidateMail(); err != nil {
			return nil, userError(err)
		}
		sender = mail.NewSMTPSender(a.cfg.Mail, a.logger)
	}

	textfile := paths.ResolveRelative(a.dataDir, a.cfg.Metrics.Textfile)
	if textfile != "" && rec == nil {
		rec = metrics.NewRecorder()
	}

	return daily.NewJob(daily.Params{
		Collaborators:   collabs,
		Store:           a.store(),
		Builder:         builder,
		Sender:          sender,
		Mail:            a.cfg.Mail,
		LookbackDays:    a.cfg.Snapshot.LookbackDays,
		Recorder:        rec,
		MetricsTextfile: textfile,
		Logger:          a.logger,
	}), nil
}

// newRunID returns a time-ordered identifier for a daily run.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeFileIfMissing creates path with content unless it already exists.
func writeFileIfMissing(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
