package manager

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"workerd/internal/backend"
	"workerd/internal/device"
	"workerd/pkg/types"
)

// createModelFile creates a file of approximately sizeMB megabytes and returns its path.
func createModelFile(t *testing.T, dir, name string, sizeMB int) string {
	t.Helper()
	if sizeMB <= 0 {
		sizeMB = 1
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	block := make([]byte, 1024*1024)
	for i := 0; i < sizeMB; i++ {
		if _, err := f.Write(block); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return p
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeRunner records calls and behaves as configured.
type fakeRunner struct {
	backend backend.Backend
	model   string
	memMB   int
	runErr  error
	panicOn bool
	delay   time.Duration
	closed  atomic.Int32
	runs    atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (r *fakeRunner) Run(ctx context.Context, in Inputs) (Outputs, error) {
	r.runs.Add(1)
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		cur := r.maxSeen.Load()
		if n <= cur || r.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.panicOn {
		panic("kernel exploded")
	}
	if r.runErr != nil {
		return nil, r.runErr
	}
	return Outputs{"echo": in["x"], "backend": string(r.backend)}, nil
}

func (r *fakeRunner) Close() error {
	r.closed.Add(1)
	return nil
}

func (r *fakeRunner) EstimatedMemoryMB() int { return r.memMB }

// stagedRunner implements every optional phase.
type stagedRunner struct {
	fakeRunner
}

func (r *stagedRunner) Preprocess(ctx context.Context, in Inputs) (Inputs, error) {
	out := Inputs{}
	for k, v := range in {
		out[k] = v
	}
	out["pre"] = true
	return out, nil
}

func (r *stagedRunner) Postprocess(ctx context.Context, out Outputs) (Outputs, error) {
	out["post"] = true
	return out, nil
}

func (r *stagedRunner) LayerStats() []types.LayerStat {
	return []types.LayerStat{{Name: "conv1", DurationMS: 0.5}}
}

// fakeLoader builds fakeRunners and can fail per backend.
type fakeLoader struct {
	mu      sync.Mutex
	failOn  map[backend.Backend]error
	memMB   int
	runErr  error
	panicOn bool
	delay   time.Duration
	calls   []backend.Backend
	runners []*fakeRunner
}

func (l *fakeLoader) Load(ctx context.Context, b backend.Backend, mdl types.Model, opts LoadOptions) (Runner, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, b)
	if err := l.failOn[b]; err != nil {
		return nil, err
	}
	r := &fakeRunner{backend: b, model: mdl.ID, memMB: l.memMB, runErr: l.runErr, panicOn: l.panicOn, delay: l.delay}
	l.runners = append(l.runners, r)
	return r, nil
}

func (l *fakeLoader) Calls() []backend.Backend {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]backend.Backend, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *fakeLoader) Runners() []*fakeRunner {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*fakeRunner, len(l.runners))
	copy(out, l.runners)
	return out
}

var errBadModel = errors.New("malformed model")

func cpuOnlyCaps() device.Capabilities {
	return device.Capabilities{Platform: "linux/amd64", LogicalCores: 4}
}

func nvidiaCaps() device.Capabilities {
	return device.Capabilities{
		Platform:          "linux/amd64",
		LogicalCores:      16,
		HasCPUOptimized:   true,
		HasAccelerator:    true,
		AcceleratorVendor: device.VendorNVIDIA,
		AcceleratorName:   "GeForce RTX 4090",
		HasVendorPath:     true,
		VendorPath:        "cuda",
	}
}

type testEnv struct {
	m     *Manager
	l     *fakeLoader
	clock *fakeClock
	pub   *MemoryPublisher
	logs  *bytes.Buffer
}

// newTestManager builds a Manager over caps with a fake loader and clock.
// opt may adjust the config before construction.
func newTestManager(t *testing.T, caps device.Capabilities, opt func(*ManagerConfig)) testEnv {
	t.Helper()
	env := testEnv{
		l:     &fakeLoader{memMB: 10},
		clock: newFakeClock(),
		pub:   NewMemoryPublisher(),
		logs:  &bytes.Buffer{},
	}
	log := zerolog.New(env.logs).Level(zerolog.DebugLevel)
	cfg := ManagerConfig{
		Loader:    env.l,
		Detector:  device.StaticDetector(caps),
		Logger:    &log,
		Publisher: env.pub,
		Clock:     env.clock.Now,
	}
	if opt != nil {
		opt(&cfg)
	}
	env.m = NewWithConfig(cfg)
	return env
}

func model(id string) types.Model {
	return types.Model{ID: id, Name: id, Path: id}
}
