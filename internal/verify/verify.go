package verify

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storagereport/internal/logging"
	"github.com/mesh-intelligence/storagereport/internal/sqlite"
)

const (
	// DefaultBufferSize is the read buffer used for content digests.
	DefaultBufferSize = 16 << 20

	// DefaultReportBytes is how many hashed bytes pass between progress lines.
	DefaultReportBytes = 128 << 20

	// DefaultReportRows is how many rows pass between progress lines in
	// Convert and Compare, and the Convert batch size.
	DefaultReportRows = sqlite.DefaultBatchSize
)

type (
	// Verifier hashes, converts and compares directory listings.
	Verifier struct {
		logger      *zap.Logger
		bufferSize  int
		reportBytes int64
		reportRows  int
	}

	// Option configures a Verifier.
	Option func(*Verifier)
)

// WithBufferSize sets the digest read buffer.
func WithBufferSize(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.bufferSize = n
		}
	}
}

// WithReportBytes sets the progress interval of Hash.
func WithReportBytes(n int64) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.reportBytes = n
		}
	}
}

// WithReportRows sets the progress interval of Convert and Compare, and
// the number of rows Convert commits at once.
func WithReportRows(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.reportRows = n
		}
	}
}

// NewVerifier returns a Verifier with the default buffer and progress
// intervals.
func NewVerifier(logger *zap.Logger, opts ...Option) *Verifier {
	v := &Verifier{
		logger:      logging.WithPackage(logger),
		bufferSize:  DefaultBufferSize,
		reportBytes: DefaultReportBytes,
		reportRows:  DefaultReportRows,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}
