package worker

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/omegabuild/buildworker/internal/toolchain"
	"github.com/omegabuild/buildworker/internal/utils"
	"github.com/omegabuild/buildworker/pkg/broker"
	"github.com/omegabuild/buildworker/pkg/structs"
)

const (
	// how long we wait between broker pings / dequeue retries
	retryReady   = 2 * time.Second
	retryDequeue = 1 * time.Second

	// exit code recorded for jobs rejected before the toolchain runs
	// (unknown target, missing project dir)
	exitRejected = 2

	// exit code recorded when the toolchain could not be started at all
	exitInternal = 1

	// exit code reported on a worker crash; matches the Go runtime's exit
	// status for an unrecovered panic
	exitCrash = 2
)

// Config holds the worker's filesystem layout.
type Config struct {
	// WorkspaceRoot is the base directory relative project paths resolve
	// under.
	WorkspaceRoot string

	// LogDir is the root for per-job step logs; each job gets
	// <LogDir>/<job id>/<step>.log.
	LogDir string
}

// inflight holds the id of the job currently being processed, so a crash
// can be attributed a terminal status. Set at the top of each iteration and
// cleared on normal completion at the bottom; after a panic it still holds
// the id when the crash reporter runs.
type inflight struct {
	mu sync.Mutex
	id string
}

func (f *inflight) set(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.id = id
}

func (f *inflight) get() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

// Worker pops build jobs off the shared queue one at a time, runs the
// requested toolchain action and publishes status records. It has no
// internal parallelism; scale out by running more worker processes against
// the same queue.
type Worker struct {
	bk  broker.Broker
	tc  toolchain.Toolchain
	cfg *Config

	cur inflight
}

func New(bk broker.Broker, tc toolchain.Toolchain, cfg *Config) *Worker {
	return &Worker{bk: bk, tc: tc, cfg: cfg}
}

// Run blocks processing jobs until ctx is cancelled. Cancellation is only
// honoured between jobs (or while blocked on dequeue, where no job has been
// claimed); a job in flight always runs to completion.
func (w *Worker) Run(ctx context.Context) error {
	defer w.reportCrash()

	w.waitReady(ctx)
	w.warmUp(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("[worker] shutdown requested, stopping")
			return nil
		default:
		}

		raw, err := w.bk.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("[worker] shutdown requested, stopping")
				return nil
			}
			// transient broker trouble reads as "no job available now"
			log.Println("[worker] dequeue:", err)
			time.Sleep(retryDequeue)
			continue
		}
		if raw == nil {
			continue
		}

		w.process(raw)
	}
}

// waitReady pings the broker until it answers. This is a long lived daemon;
// there is no retry cap, the supervisor owns overall liveness.
func (w *Worker) waitReady(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		err := w.bk.Ping(ctx)
		if err == nil {
			log.Println("[worker] broker reachable")
			return
		}
		log.Printf("[worker] waiting for broker (attempt %d): %v", attempt, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryReady):
		}
	}
}

// warmUp probes the toolchain once so the first job doesn't pay cold-start
// cost. Failure here is logged, never fatal.
func (w *Worker) warmUp(ctx context.Context) {
	v, err := w.tc.Version(ctx)
	if err != nil {
		log.Println("[worker] toolchain warm-up failed:", err)
		return
	}
	log.Println("[worker] toolchain:", v)
}

// process runs one job start to finish. It deliberately does not take the
// run context: a shutdown request only stops new dequeues, it never
// interrupts a claimed job.
func (w *Worker) process(raw []byte) {
	ctx := context.Background()

	job, err := structs.ParseJob(raw)
	if err != nil {
		// nothing to report a status against; log the payload and move on
		log.Printf("[worker] dropping payload %q: %v", raw, err)
		return
	}

	// cleared on the normal path only, never via defer: a panic must leave
	// the id in place for reportCrash to attribute
	w.cur.set(job.ID)

	log.Printf("[worker] job %s: target=%s project_dir=%s", job.ID, job.Target, job.ProjectDir)
	w.publish(ctx, job.ID, structs.NewRunning(time.Now()))

	upd := w.execute(ctx, job)
	w.publish(ctx, job.ID, upd)
	log.Printf("[worker] job %s: %s (%s)", job.ID, upd.Status, upd.Msg)

	w.cur.set("")
}

// execute resolves the job's working directory, primes dependencies and
// dispatches the target, returning the terminal status update.
func (w *Worker) execute(ctx context.Context, job *structs.Job) *structs.StatusUpdate {
	target := structs.ToTarget(string(job.Target))
	if target == "" {
		return structs.NewFailed(exitRejected, "unknown target "+string(job.Target), time.Now())
	}

	dir, err := utils.ResolveProjectDir(w.cfg.WorkspaceRoot, job.ProjectDir)
	if err != nil {
		return structs.NewFailed(exitRejected, "project dir not found", time.Now())
	}

	logDir := filepath.Join(w.cfg.LogDir, job.ID)

	// a failed dependency fetch fails the job with its own exit code; the
	// main action is not attempted
	code, err := w.tc.Prime(ctx, dir, logDir)
	if err != nil {
		log.Printf("[worker] job %s: prime: %v", job.ID, err)
		return structs.NewFailed(exitInternal, "runner failed", time.Now())
	}
	if code != 0 {
		return structs.NewFailed(code, "runner failed", time.Now())
	}

	code, err = w.tc.Run(ctx, target, dir, logDir)
	if err != nil {
		log.Printf("[worker] job %s: %s: %v", job.ID, target, err)
		return structs.NewFailed(exitInternal, "runner failed", time.Now())
	}
	if code != 0 {
		return structs.NewFailed(code, "runner failed", time.Now())
	}
	return structs.NewSuccess(time.Now())
}

func (w *Worker) publish(ctx context.Context, jobID string, upd *structs.StatusUpdate) {
	if err := w.bk.SetStatus(ctx, jobID, upd); err != nil {
		log.Printf("[worker] publish %s for job %s: %v", upd.Status, jobID, err)
	}
}

// reportCrash publishes a best-effort crashed record for any in-flight job
// before letting the original panic continue. Its own failure must never
// mask the crash.
func (w *Worker) reportCrash() {
	r := recover()
	if r == nil {
		return
	}
	if id := w.cur.get(); id != "" {
		_ = w.bk.SetStatus(context.Background(), id, structs.NewCrashed(exitCrash, time.Now()))
	}
	panic(r)
}
