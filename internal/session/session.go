// Package session owns the dataset currently under exploration and every
// result derived from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/classify"
	"github.com/KaramelBytes/sheetscope-cli/internal/clean"
	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/KaramelBytes/sheetscope-cli/internal/filter"
	"github.com/KaramelBytes/sheetscope-cli/internal/ingest"
	"github.com/KaramelBytes/sheetscope-cli/internal/summary"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoDataset is returned by operations that need a loaded dataset.
var ErrNoDataset = errors.New("no dataset loaded")

// Options bundles the settings of every pipeline stage.
type Options struct {
	Ingest   ingest.Options
	Clean    clean.Options
	Classify classify.Options
	Summary  summary.Options
}

// DefaultOptions returns the defaults of every stage.
func DefaultOptions() Options {
	return Options{
		Ingest:   ingest.DefaultOptions(),
		Clean:    clean.DefaultOptions(),
		Classify: classify.DefaultOptions(),
		Summary:  summary.DefaultOptions(),
	}
}

// State is an immutable snapshot of one loaded dataset. A new State is built
// for every load and every filter change.
type State struct {
	ID       string
	FileName string
	LoadedAt time.Time

	// Data is the cleaned dataset with date columns materialized.
	Data           *dataset.Dataset
	Clean          clean.Report
	Classification *classify.Classification
	Baseline       *summary.Report

	Filter     filter.Spec
	View       *dataset.Dataset
	ViewReport *summary.Report
}

// Build runs clean, classify and summarize over raw.
func Build(raw *dataset.Dataset, opt Options) (*State, error) {
	cleaned, crep := clean.Clean(raw, opt.Clean)
	cls := classify.Classify(cleaned, opt.Classify)
	applied, err := cls.Apply(cleaned)
	if err != nil {
		return nil, err
	}
	base := summary.Summarize(applied, cls, opt.Summary)
	return &State{
		ID:             uuid.NewString(),
		FileName:       raw.Name,
		LoadedAt:       time.Now(),
		Data:           applied,
		Clean:          crep,
		Classification: cls,
		Baseline:       base,
		View:           applied,
		ViewReport:     base,
	}, nil
}

// WithFilter returns a copy of st whose view is narrowed by spec.
func (st *State) WithFilter(spec filter.Spec, opt summary.Options) (*State, error) {
	view, err := filter.Apply(st.Data, spec)
	if err != nil {
		return nil, err
	}
	next := *st
	next.Filter = spec
	next.View = view
	if spec.IsEmpty() {
		next.ViewReport = st.Baseline
	} else {
		next.ViewReport = summary.Summarize(view, st.Classification, opt)
	}
	return &next, nil
}

// Session holds the current State. Methods are safe for concurrent use; each
// replaces the State wholesale so readers never observe a partial update.
type Session struct {
	mu    sync.Mutex
	opt   Options
	state *State
}

// New returns an empty Session.
func New(opt Options) *Session {
	return &Session{opt: opt}
}

// Options returns the pipeline settings.
func (s *Session) Options() Options { return s.opt }

// Current returns the current State, or nil before the first load.
func (s *Session) Current() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Require returns the current State or ErrNoDataset.
func (s *Session) Require() (*State, error) {
	if st := s.Current(); st != nil {
		return st, nil
	}
	return nil, ErrNoDataset
}

// Load ingests r and replaces the current State. On failure the previous
// State is kept.
func (s *Session) Load(ctx context.Context, r io.ReadSeeker, name string) (*State, error) {
	logger := zerolog.Ctx(ctx)
	raw, err := ingest.Load(r, name, s.opt.Ingest)
	if err != nil {
		logger.Warn().Err(err).Str("file", name).Msg("ingest failed, keeping previous dataset")
		return nil, err
	}
	return s.LoadDataset(ctx, raw)
}

// LoadFile is Load for a path on disk.
func (s *Session) LoadFile(ctx context.Context, path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ingest.Error{Source: path, Hint: "check that the file exists and is readable", Err: err}
	}
	defer f.Close()
	return s.Load(ctx, f, filepath.Base(path))
}

// LoadDataset replaces the current State with one built from raw.
func (s *Session) LoadDataset(ctx context.Context, raw *dataset.Dataset) (*State, error) {
	st, err := Build(raw, s.opt)
	if err != nil {
		return nil, fmt.Errorf("build session state: %w", err)
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Str("session", st.ID).
		Str("file", st.FileName).
		Int("rows", st.Data.Rows()).
		Int("columns", st.Data.Width()).
		Int("dropped_rows", st.Clean.DroppedRows).
		Msg("dataset loaded")
	return st, nil
}

// Reset discards the current State.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	prev := s.state
	s.state = nil
	s.mu.Unlock()
	if prev != nil {
		zerolog.Ctx(ctx).Info().Str("session", prev.ID).Msg("dataset reset")
	}
}

// SetFilter replaces the current State with one whose view matches spec.
func (s *Session) SetFilter(ctx context.Context, spec filter.Spec) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, ErrNoDataset
	}
	next, err := s.state.WithFilter(spec, s.opt.Summary)
	if err != nil {
		return nil, err
	}
	s.state = next
	zerolog.Ctx(ctx).Debug().
		Str("session", next.ID).
		Str("filter", spec.String()).
		Int("rows", next.View.Rows()).
		Msg("filter applied")
	return next, nil
}

// ClearFilter restores the unfiltered view.
func (s *Session) ClearFilter(ctx context.Context) (*State, error) {
	return s.SetFilter(ctx, filter.Spec{})
}
