// Package variant runs hue-variant jobs: one source image expanded into a
// sequence of hue-rotated, optionally captioned JPEG files.
//
// A Job moves through Idle, Running, and one of Completed, Cancelled, or
// Failed. It runs exactly once. Progress callbacks fire in ascending step
// order from a single goroutine, and the completion callback fires at most
// once, only when every step finished.
package variant

import (
	"context"
	"image"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ironsheep/hue-variants-mcp/internal/config"
	"github.com/ironsheep/hue-variants-mcp/internal/imaging"
	"github.com/ironsheep/hue-variants-mcp/internal/naming"
	"github.com/ironsheep/hue-variants-mcp/internal/overlay"
)

// State is a job lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// TextRenderer draws a group of lines onto an image and returns the result.
// It must be safe for concurrent use when Workers > 1.
type TextRenderer interface {
	AddText(img image.Image, lines []string) image.Image
}

// Request describes a job to create.
type Request struct {
	ImagePath string
	OutputDir string
	Template  naming.Template
	Config    config.Config

	// OnProgress is called with the step index after each step is persisted.
	OnProgress func(index int)

	// OnComplete is called once after every step finished.
	OnComplete func()

	// OnFinish is called with the final status on every terminal transition,
	// before Done is closed.
	OnFinish func(Status)

	// Renderer overrides the overlay renderer built from Config. The job does
	// not close a renderer it was given.
	Renderer TextRenderer

	// Cache, when set, is used to load the source image.
	Cache *imaging.ImageCache
}

// Status is a point-in-time snapshot of a job.
type Status struct {
	ID        string   `json:"id"`
	State     State    `json:"state"`
	Completed int      `json:"completed"`
	Total     int      `json:"total"`
	Files     []string `json:"files"`
	Skipped   []int    `json:"skipped,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Job generates the variants of one source image.
type Job struct {
	id       string
	req      Request
	cfg      config.Config
	steps    []Step
	renderer TextRenderer
	ownsRend bool

	cancelled  atomic.Bool
	cancelCh   chan struct{}
	cancelOnce sync.Once
	done       chan struct{}

	mu        sync.Mutex
	state     State
	completed int
	files     []string
	skipped   []int
	err       error
}

// New validates req and returns an idle job.
//
// Returns a *ConfigurationError when the configuration, the template, or a
// required path is invalid.
func New(req Request) (*Job, error) {
	if req.ImagePath == "" {
		return nil, &ConfigurationError{Field: "image_path", Err: errRequired}
	}
	if req.OutputDir == "" {
		return nil, &ConfigurationError{Field: "output_dir", Err: errRequired}
	}
	if err := req.Config.Validate(); err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	if err := req.Template.Validate(); err != nil {
		return nil, &ConfigurationError{Field: "template", Err: err}
	}

	cfg := req.Config.Clone()
	return &Job{
		id:       uuid.NewString(),
		req:      req,
		cfg:      cfg,
		steps:    PlanSteps(cfg.HueStart, cfg.HueEnd, cfg.StepCount),
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
		state:    StateIdle,
	}, nil
}

// ID returns the job's UUID.
func (j *Job) ID() string {
	return j.id
}

// Config returns a copy of the configuration snapshot the job runs with.
func (j *Job) Config() config.Config {
	return j.cfg.Clone()
}

// Steps returns the planned steps.
func (j *Job) Steps() []Step {
	return append([]Step(nil), j.steps...)
}

// Start loads the source image and runs the steps on a background goroutine.
//
// The image is loaded before Start returns. If that fails the job moves to
// Failed, only OnFinish is invoked, and a *ResourceLoadError is returned.
// A second call returns ErrAlreadyStarted.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.state != StateIdle {
		j.mu.Unlock()
		return ErrAlreadyStarted
	}
	j.state = StateRunning
	j.mu.Unlock()

	src, err := j.loadSource()
	if err != nil {
		loadErr := &ResourceLoadError{Path: j.req.ImagePath, Err: err}
		j.finish(StateFailed, loadErr)
		return loadErr
	}

	j.renderer = j.req.Renderer
	if j.cfg.OverlayEnabled && j.renderer == nil {
		j.renderer = overlay.NewRenderer(overlay.OptionsFromConfig(j.cfg))
		j.ownsRend = true
	}

	go j.run(ctx, src)
	return nil
}

// Run starts the job and waits for it to finish.
func (j *Job) Run(ctx context.Context) error {
	if err := j.Start(ctx); err != nil {
		return err
	}
	return j.Wait()
}

// Cancel requests a graceful stop at the next step boundary. It is safe to
// call from any goroutine, including from inside OnProgress.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
	j.cancelOnce.Do(func() { close(j.cancelCh) })
}

// Done returns a channel closed once the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns its terminal error: nil when
// Completed, ErrCancelled when Cancelled, and the failure otherwise.
func (j *Job) Wait() error {
	if j.State() == StateIdle {
		return ErrNotStarted
	}
	<-j.done

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Status returns a snapshot of the job.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()

	st := Status{
		ID:        j.id,
		State:     j.state,
		Completed: j.completed,
		Total:     len(j.steps),
		Files:     append([]string{}, j.files...),
	}
	if len(j.skipped) > 0 {
		st.Skipped = append([]int(nil), j.skipped...)
	}
	if j.err != nil {
		st.Error = j.err.Error()
	}
	return st
}

func (j *Job) loadSource() (image.Image, error) {
	if j.req.Cache != nil {
		return j.req.Cache.Load(j.req.ImagePath)
	}
	return imaging.LoadImage(j.req.ImagePath)
}

func (j *Job) stopRequested(ctx context.Context) bool {
	return j.cancelled.Load() || ctx.Err() != nil
}

func (j *Job) run(ctx context.Context, src image.Image) {
	defer func() {
		if j.ownsRend {
			if closer, ok := j.renderer.(interface{ Close() error }); ok {
				_ = closer.Close()
			}
		}
	}()

	var (
		processed int
		err       error
	)
	if j.cfg.Workers > 1 && len(j.steps) > 1 {
		processed, err = j.runParallel(ctx, src, j.cfg.Workers)
	} else {
		processed, err = j.runSequential(ctx, src)
	}

	switch {
	case err != nil:
		log.Printf("VariantJob %s: failed: %v", j.id, err)
		j.finish(StateFailed, err)
	case processed < len(j.steps):
		j.finish(StateCancelled, ErrCancelled)
	default:
		j.finish(StateCompleted, nil)
	}
}

// runSequential processes steps in order and returns how many it handled.
func (j *Job) runSequential(ctx context.Context, src image.Image) (int, error) {
	for i, step := range j.steps {
		if j.stopRequested(ctx) {
			return i, nil
		}
		path, stepErr := j.processStep(src, step)
		if err := j.emit(step, path, stepErr); err != nil {
			return i, err
		}
	}
	return len(j.steps), nil
}

type stepResult struct {
	step    Step
	path    string
	err     error
	dropped bool
}

// runParallel transforms and persists steps on a bounded pool. Results are
// re-sequenced so that callbacks still fire in ascending index order. A step
// handed to a worker after a stop request is dropped unprocessed, and it
// returns how many steps were reported before the first drop or failure.
func (j *Job) runParallel(ctx context.Context, src image.Image, workers int) (int, error) {
	if workers > len(j.steps) {
		workers = len(j.steps)
	}

	workCh := make(chan Step)
	resultCh := make(chan stepResult, workers)
	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stop) }) }

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for step := range workCh {
				if j.stopRequested(ctx) {
					resultCh <- stepResult{step: step, dropped: true}
					continue
				}
				path, err := j.processStep(src, step)
				resultCh <- stepResult{step: step, path: path, err: err}
			}
		}()
	}

	go func() {
		defer close(workCh)
		for _, step := range j.steps {
			if j.stopRequested(ctx) {
				return
			}
			select {
			case workCh <- step:
			case <-stop:
				return
			case <-j.cancelCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	pending := make(map[int]stepResult)
	next, reported := 0, 0
	halted := false
	var fatal error
	for res := range resultCh {
		pending[res.step.Index] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			if halted {
				// Already on disk; keep track of it without reporting progress.
				if !r.dropped && r.err == nil {
					j.recordFile(r.path)
				}
				continue
			}
			if r.dropped {
				halted = true
				halt()
				continue
			}
			if err := j.emit(r.step, r.path, r.err); err != nil {
				fatal = err
				halted = true
				halt()
				continue
			}
			reported++
		}
	}

	return reported, fatal
}

// processStep derives one variant from the pristine source and persists it.
func (j *Job) processStep(src image.Image, step Step) (string, error) {
	var out image.Image = imaging.RotateHue(src, float64(step.HueShift))

	if j.cfg.OverlayEnabled && j.renderer != nil {
		out = j.renderer.AddText(out, j.cfg.Slogans[step.Index%len(j.cfg.Slogans)])
	}

	path := filepath.Join(j.req.OutputDir, j.req.Template.Generate(step.Index))
	if err := imaging.SaveJPEG(out, path, j.cfg.JPEGQuality); err != nil {
		return path, &PersistenceError{Step: step.Index, Path: path, Err: err}
	}
	return path, nil
}

// emit records a finished step and fires its progress callback. A write
// failure is returned unless the job is configured to skip it.
func (j *Job) emit(step Step, path string, stepErr error) error {
	if stepErr != nil {
		if !j.cfg.ContinueOnWriteError {
			return stepErr
		}
		log.Printf("VariantJob %s: skipping step %d: %v", j.id, step.Index, stepErr)
		j.mu.Lock()
		j.skipped = append(j.skipped, step.Index)
		j.mu.Unlock()
		return nil
	}

	j.mu.Lock()
	j.completed++
	j.files = append(j.files, path)
	j.mu.Unlock()

	if j.req.OnProgress != nil {
		j.req.OnProgress(step.Index)
	}
	return nil
}

func (j *Job) recordFile(path string) {
	j.mu.Lock()
	j.files = append(j.files, path)
	j.mu.Unlock()
}

func (j *Job) finish(state State, err error) {
	j.mu.Lock()
	j.state = state
	j.err = err
	j.mu.Unlock()

	if state == StateCompleted && j.req.OnComplete != nil {
		j.req.OnComplete()
	}
	if j.req.OnFinish != nil {
		j.req.OnFinish(j.Status())
	}
	close(j.done)
}
