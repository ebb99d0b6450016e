package record

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/keytrial/internal/logging"
	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/store"
)

// DefaultTimeout bounds each recorder call.
const DefaultTimeout = 5 * time.Second

// Recorder persists or forwards a finished trial.
type Recorder interface {
	Record(ctx context.Context, res model.TrialResult) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, res model.TrialResult) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, res model.TrialResult) error { return f(ctx, res) }

// StoreRecorder inserts results into the SQLite store.
type StoreRecorder struct {
	Store *store.Store
}

// Record implements Recorder.
func (r StoreRecorder) Record(ctx context.Context, res model.TrialResult) error {
	_, err := r.Store.InsertTrial(ctx, res)
	return err
}

// FileRecorder writes each result to a JSON or YAML file.
type FileRecorder struct {
	Path string
}

// Record implements Recorder.
func (r FileRecorder) Record(_ context.Context, res model.TrialResult) error {
	return WriteFile(r.Path, res)
}

// Fanout is a trial result sink that hands the result to every recorder in
// order. A failing recorder is logged and does not stop the others.
type Fanout struct {
	recorders []Recorder
	logger    *zap.SugaredLogger
	timeout   time.Duration

	mu   sync.Mutex
	errs []error
}

// NewFanout returns a sink over recorders.
func NewFanout(logger *zap.SugaredLogger, recorders ...Recorder) *Fanout {
	return &Fanout{
		recorders: recorders,
		logger:    logging.OrNop(logger),
		timeout:   DefaultTimeout,
	}
}

// FinishTrial implements trial.ResultSink.
func (f *Fanout) FinishTrial(res model.TrialResult) {
	for _, r := range f.recorders {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		err := r.Record(ctx, res)
		cancel()
		if err != nil {
			f.logger.Errorw("failed to record trial", "trial", res.TrialID, "error", err)
			f.mu.Lock()
			f.errs = append(f.errs, err)
			f.mu.Unlock()
		}
	}
}

// Err returns the joined recorder errors, if any.
func (f *Fanout) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return errors.Join(f.errs...)
}
