package measure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pario-ai/dimsync/pkg/markersync"
	"github.com/pario-ai/dimsync/pkg/models"
)

// PairOutcome is the full result of one pair in a pass.
type PairOutcome struct {
	Index    int                 `json:"index"`
	Success  bool                `json:"success"`
	Message  string              `json:"message"`
	Distance *float64            `json:"distance,omitempty"`
	Sync     markersync.PairSync `json:"-"`
	Visual   *Artifact           `json:"visual,omitempty"`
	Pair     *models.PointPair   `json:"pair"`
}

// Report is the result of one pass. Success and Messages are aligned with
// the input pairs.
type Report struct {
	Success  []bool
	Messages []string
	Outcomes []PairOutcome
	Forced   bool
}

// Succeeded counts the successful pairs.
func (r *Report) Succeeded() int {
	n := 0
	for _, ok := range r.Success {
		if ok {
			n++
		}
	}
	return n
}

// Runner drives full passes: marker sync then measurement, pair by pair.
type Runner struct {
	mu        sync.Mutex
	engine    *markersync.Engine
	publisher *Publisher
	trigger   *Trigger
	logger    *slog.Logger
}

// NewRunner returns a Runner. A nil trigger gets a private one.
func NewRunner(engine *markersync.Engine, publisher *Publisher, trigger *Trigger, logger *slog.Logger) *Runner {
	if trigger == nil {
		trigger = &Trigger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{engine: engine, publisher: publisher, trigger: trigger, logger: logger}
}

// Trigger returns the runner's force-sync trigger.
func (r *Runner) Trigger() *Trigger { return r.trigger }

// RunOption adjusts a single pass.
type RunOption func(*runOpts)

type runOpts struct {
	offset *float64
}

// WithOffset overrides the publisher's measurement offset for one pass.
func WithOffset(v float64) RunOption {
	return func(o *runOpts) { o.offset = &v }
}

// Run processes pairs in order. Each pair is synchronized and published
// before the next one starts, and a failure never stops the pass.
func (r *Runner) Run(ctx context.Context, pairs []*models.PointPair, opts ...RunOption) *Report {
	var o runOpts
	for _, fn := range opts {
		fn(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	publisher := r.publisher
	if o.offset != nil {
		publisher = publisher.WithOffset(*o.offset)
	}
	force := r.trigger.Consume()
	r.engine.BeginPass()
	rep := &Report{
		Success:  make([]bool, 0, len(pairs)),
		Messages: make([]string, 0, len(pairs)),
		Outcomes: make([]PairOutcome, 0, len(pairs)),
		Forced:   force,
	}

	for i, pp := range pairs {
		out := PairOutcome{Index: i, Pair: pp}
		if !pp.IsValid() {
			out.Message = "Invalid PointPair"
		} else {
			out.Sync = r.engine.SyncPair(ctx, pp, force)
			pub := publisher.Publish(ctx, pp, out.Sync)
			out.Success, out.Message, out.Distance = pub.Success, pub.Message, pub.Distance
			if pub.Success {
				v := Visualize(pp, r.engine.Units())
				out.Visual = &v
			}
		}
		r.logger.Debug("pair processed", "index", i, "success", out.Success, "message", out.Message)
		rep.Success = append(rep.Success, out.Success)
		rep.Messages = append(rep.Messages, out.Message)
		rep.Outcomes = append(rep.Outcomes, out)
	}

	r.logger.Info("sync pass finished", "pairs", len(pairs), "succeeded", rep.Succeeded(), "forced", force)
	return rep
}
