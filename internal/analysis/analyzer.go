package analysis

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/pipe-harmonics/internal/dsp"
	"github.com/roman-kulish/pipe-harmonics/internal/harmonic"
	"github.com/roman-kulish/pipe-harmonics/internal/trace"
)

// DefaultHarmonic is the non-fundamental harmonic number analyzed when no
// override is configured.
const DefaultHarmonic = 3

// FileAnalyzer is the per-file unit of work dispatched by Runner.
type FileAnalyzer interface {
	Analyze(path string, keys []KeyValue) (Record, error)
}

// WithHarmonic sets the non-fundamental harmonic number to fit alongside
// the fundamental.
func WithHarmonic(h int) func(*Analyzer) {
	return func(a *Analyzer) {
		a.harmonic = h
	}
}

// WithMaxSampleRate caps the sample rate the channel reader returns;
// recordings sampled faster are decimated.
func WithMaxSampleRate(rate float64) func(*Analyzer) {
	return func(a *Analyzer) {
		a.maxSampleRate = rate
	}
}

// WithLogger sets the logger used for progress notifications.
func WithLogger(logger *slog.Logger) func(*Analyzer) {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithVerbose enables a best-effort progress line per processed file.
func WithVerbose(verbose bool) func(*Analyzer) {
	return func(a *Analyzer) {
		a.verbose = verbose
	}
}

// Analyzer runs the full single-file pipeline: trace reading, signal
// conditioning, harmonic fitting, and ratio extraction.
type Analyzer struct {
	reader  trace.Reader
	mapping map[trace.Role]string

	harmonic      int
	maxSampleRate float64

	logger  *slog.Logger
	verbose bool
}

// NewAnalyzer creates an Analyzer reading channels through the given
// reader with the given channel-role mapping. The mapping must cover the
// drive, secondary and receiver roles; the reference role is optional.
func NewAnalyzer(reader trace.Reader, mapping map[trace.Role]string, options ...func(*Analyzer)) (*Analyzer, error) {
	for _, role := range []trace.Role{trace.RoleDrive, trace.RoleSecondary, trace.RoleReceiver} {
		if _, ok := mapping[role]; !ok {
			return nil, fmt.Errorf("creating analyzer: channel role %q is not mapped", role)
		}
	}

	a := Analyzer{
		reader:   reader,
		mapping:  mapping,
		harmonic: DefaultHarmonic,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&a)
	}
	return &a, nil
}

// Analyze processes one recording and returns its result record: the
// caller keys merged with the eight derived fields. Every error carries
// the file path so the offending input can be located and re-run.
func (a *Analyzer) Analyze(path string, keys []KeyValue) (Record, error) {
	if a.verbose {
		a.logger.Info("processing file", slog.String("file", path))
	}

	tbl, err := a.reader.Read(path, a.mapping, a.maxSampleRate)
	if err != nil {
		return Record{}, err
	}

	harmonics := []int{1, a.harmonic}

	fits := make(map[trace.Role]*harmonic.Fit, 3)
	for _, role := range []trace.Role{trace.RoleDrive, trace.RoleSecondary, trace.RoleReceiver} {
		conditioned, err := dsp.Condition(tbl.Channels[role])
		if err != nil {
			return Record{}, fmt.Errorf("analyzing %s: %s channel: %w", path, role, err)
		}

		fit, err := harmonic.FitSeries(tbl.Time, conditioned, harmonics)
		if err != nil {
			return Record{}, fmt.Errorf("analyzing %s: %s channel: %w", path, role, err)
		}
		fits[role] = fit
	}

	// The induced voltage in this apparatus is proportional to the time
	// derivative of the drive-channel quantity.
	drive := fits[trace.RoleDrive].Derivative()
	sec := fits[trace.RoleSecondary]
	rec := fits[trace.RoleReceiver]

	zPrimSec, err := sec.Divide(drive)
	if err != nil {
		return Record{}, fmt.Errorf("analyzing %s: %w", path, err)
	}
	zPrimRec, err := rec.Divide(drive)
	if err != nil {
		return Record{}, fmt.Errorf("analyzing %s: %w", path, err)
	}
	zSecRec, err := rec.Divide(sec)
	if err != nil {
		return Record{}, fmt.Errorf("analyzing %s: %w", path, err)
	}

	return Record{
		Path: path,
		Keys: keys,
		Derived: map[string]float64{
			FieldPrimSecAmp: zPrimSec.Amplitudes()[0],
			FieldPrimSecPhi: zPrimSec.Phases()[0],
			FieldPrimRecAmp: zPrimRec.Amplitudes()[0],
			FieldPrimRecPhi: zPrimRec.Phases()[0],
			FieldSecRecAmp:  zSecRec.Amplitudes()[0],
			FieldSecRecPhi:  zSecRec.Phases()[0],
			FieldSecHarmDB:  sec.RelativePowerDB(a.harmonic),
			FieldRecHarmDB:  rec.RelativePowerDB(a.harmonic),
		},
	}, nil
}
