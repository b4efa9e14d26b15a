// Package metrics records run results in a Prometheus registry and writes
// them for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

const namespace = "storagereport"

// Job results used as the "result" label of JobRuns.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Recorder owns a private registry so the textfile only carries this
// job's series.
type Recorder struct {
	registry *prometheus.Registry

	BucketFiles      *prometheus.GaugeVec
	BucketBytes      *prometheus.GaugeVec
	SnapshotDuration prometheus.Gauge
	LastSuccess      prometheus.Gauge
	JobRuns          *prometheus.CounterVec
	JobHeld          prometheus.Gauge
}

// NewRecorder registers every series in a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		BucketFiles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bucket_files",
			Help:      "Objects in a collaborator's bucket at the last snapshot.",
		}, []string{"collaborator", "bucket"}),
		BucketBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bucket_bytes",
			Help:      "Bytes in a collaborator's bucket at the last snapshot.",
		}, []string{"collaborator", "bucket"}),
		SnapshotDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Wall time spent scanning buckets for the last snapshot.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful daily run.",
		}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled daily runs by result.",
		}, []string{"result"}),
		JobHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_held",
			Help:      "1 while the scheduled job is held after a failure.",
		}),
	}

	r.registry.MustRegister(
		r.BucketFiles,
		r.BucketBytes,
		r.SnapshotDuration,
		r.LastSuccess,
		r.JobRuns,
		r.JobHeld,
	)
	return r
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSnapshot records per-bucket usage and scan duration.
func (r *Recorder) ObserveSnapshot(snap types.Snapshot) {
	r.BucketFiles.Reset()
	r.BucketBytes.Reset()
	for _, e := range snap.Entries {
		r.BucketFiles.WithLabelValues(e.Name, e.Bucket).Set(float64(e.Files))
		r.BucketBytes.WithLabelValues(e.Name, e.Bucket).Set(float64(e.Bytes))
	}
	r.SnapshotDuration.Set(snap.Meta.EndTime - snap.Meta.StartTime)
}

// ObserveSuccess stamps the time of a successful run.
func (r *Recorder) ObserveSuccess(at time.Time) {
	r.LastSuccess.Set(types.FloatUnix(at))
}

// WriteTextfile writes the registry to path in the text exposition format.
// The write goes through a temporary file in the same directory so the
// collector never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
