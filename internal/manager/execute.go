package manager

import (
	"context"
	"fmt"
	"time"

	"workerd/pkg/types"
)

// Execute runs w on in and returns the execution report. Runtime failures,
// including panics, are captured in the report with Success=false; the error
// return is reserved for misuse (a disposed or foreign worker), in which case
// the report still carries the failure.
//
// The worker's Timeout is advisory: an execution exceeding it is logged but
// never interrupted. When reportPerformance is set a one-line summary is
// logged.
func (m *Manager) Execute(ctx context.Context, w *Worker, in Inputs, reportPerformance bool) (types.ExecutionReport, error) {
	if w == nil {
		return types.ExecutionReport{Error: ErrUnknownWorker.Error(), Timestamp: m.now()}, ErrUnknownWorker
	}
	report := types.ExecutionReport{ModelID: w.modelID, WorkerID: w.id, Backend: string(w.backend)}

	m.mu.Lock()
	if w.disposed.Load() {
		m.mu.Unlock()
		report.Error = ErrUsedAfterDispose.Error()
		report.Timestamp = m.now()
		return report, ErrUsedAfterDispose
	}
	rec, ok := m.workers[w.id]
	if !ok || rec.w != w {
		m.mu.Unlock()
		report.Error = ErrUnknownWorker.Error()
		report.Timestamp = m.now()
		return report, ErrUnknownWorker
	}
	rec.running++
	m.mu.Unlock()

	ph := m.runPhases(ctx, w, in)

	report.PreprocessMS = ms(ph.pre)
	report.InferenceMS = ms(ph.inf)
	report.PostprocessMS = ms(ph.post)
	report.TotalMS = ms(ph.pre + ph.inf + ph.post)
	report.Success = ph.err == nil
	if ph.err != nil {
		report.Error = ph.err.Error()
	}
	report.LayerStats = ph.layers
	report.Timestamp = m.now()

	m.mu.Lock()
	rec.running--
	rec.lastUsed = report.Timestamp
	rec.executions++
	stored := report
	rec.lastReport = &stored
	if ph.err == nil {
		rec.lastOutputs = ph.out
	}
	if md, ok := m.models[w.modelID]; ok {
		md.LastUsed = report.Timestamp
		md.Uses++
	}
	closeNow := rec.closePending && rec.running == 0
	m.mu.Unlock()
	if closeNow {
		m.closeRunner(w)
	}

	m.reportsMu.Lock()
	m.reports[w.modelID] = report
	m.reportsMu.Unlock()

	m.observe(w, ph, report, reportPerformance)
	return report, nil
}

// Outputs returns the outputs of w's last successful execution.
func (m *Manager) Outputs(w *Worker) (Outputs, error) {
	if w == nil {
		return nil, ErrUnknownWorker
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.disposed.Load() {
		return nil, ErrUsedAfterDispose
	}
	rec, ok := m.workers[w.id]
	if !ok || rec.w != w {
		return nil, ErrUnknownWorker
	}
	return rec.lastOutputs, nil
}

// LastReport returns the most recent report produced by w.
func (m *Manager) LastReport(w *Worker) (types.ExecutionReport, bool, error) {
	if w == nil {
		return types.ExecutionReport{}, false, ErrUnknownWorker
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.disposed.Load() {
		return types.ExecutionReport{}, false, ErrUsedAfterDispose
	}
	rec, ok := m.workers[w.id]
	if !ok || rec.w != w {
		return types.ExecutionReport{}, false, ErrUnknownWorker
	}
	if rec.lastReport == nil {
		return types.ExecutionReport{}, false, nil
	}
	return *rec.lastReport, true, nil
}

type phases struct {
	pre, inf, post time.Duration
	out            Outputs
	layers         []types.LayerStat
	err            error
}

// runPhases times preprocess, inference and postprocess with separate
// stopwatches. Phases the runner does not implement are still timed.
func (m *Manager) runPhases(ctx context.Context, w *Worker, in Inputs) (ph phases) {
	if w.execMu != nil {
		w.execMu.Lock()
		defer w.execMu.Unlock()
	}
	r := w.runner

	start := time.Now()
	if p, ok := r.(Preprocessor); ok {
		ph.err = guard("preprocess", func() (err error) {
			in, err = p.Preprocess(ctx, in)
			return err
		})
	}
	ph.pre = time.Since(start)
	if ph.err != nil {
		return ph
	}

	start = time.Now()
	ph.err = guard("inference", func() (err error) {
		ph.out, err = r.Run(ctx, in)
		return err
	})
	ph.inf = time.Since(start)
	if ph.err != nil {
		return ph
	}

	start = time.Now()
	if p, ok := r.(Postprocessor); ok {
		ph.err = guard("postprocess", func() (err error) {
			ph.out, err = p.Postprocess(ctx, ph.out)
			return err
		})
	}
	ph.post = time.Since(start)
	if ph.err != nil {
		return ph
	}

	if lr, ok := r.(LayerStatsReporter); ok {
		_ = guard("layer stats", func() error {
			ph.layers = lr.LayerStats()
			return nil
		})
	}
	return ph
}

// guard runs fn, converting a panic into an error tagged with phase.
func guard(phase string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panic: %v", phase, rec)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", phase, err)
	}
	return nil
}

func (m *Manager) observe(w *Worker, ph phases, report types.ExecutionReport, reportPerformance bool) {
	b := string(w.backend)
	executorPhaseSeconds.WithLabelValues("preprocess", b).Observe(ph.pre.Seconds())
	executorPhaseSeconds.WithLabelValues("inference", b).Observe(ph.inf.Seconds())
	executorPhaseSeconds.WithLabelValues("postprocess", b).Observe(ph.post.Seconds())

	log := m.logger("executor")
	if !report.Success {
		executorFailures.Inc()
		log.Warn().Str("worker", w.id).Str("model", w.modelID).Str("error", report.Error).Msg("execution failed")
	}
	total := ph.pre + ph.inf + ph.post
	if to := w.cfg.Timeout; to > 0 && total > to {
		log.Warn().Str("worker", w.id).Str("model", w.modelID).Dur("elapsed", total).Dur("timeout", to).
			Msg("execution exceeded timeout")
	}
	if reportPerformance {
		log.Info().
			Str("model", w.modelID).
			Str("backend", b).
			Float64("preprocess_ms", report.PreprocessMS).
			Float64("inference_ms", report.InferenceMS).
			Float64("postprocess_ms", report.PostprocessMS).
			Float64("total_ms", report.TotalMS).
			Bool("success", report.Success).
			Msg("execution summary")
	}
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
