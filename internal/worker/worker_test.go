package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/omegabuild/buildworker/internal/mocks/pkg/broker_mock"
	"github.com/omegabuild/buildworker/pkg/structs"
)

// fakeToolchain records dispatches and returns canned exit codes.
type fakeToolchain struct {
	primeCode int
	primeErr  error
	runCode   int
	runErr    error
	runPanic  interface{}

	primed []string
	runs   []structs.Target
}

func (f *fakeToolchain) Check() error { return nil }

func (f *fakeToolchain) Version(ctx context.Context) (string, error) {
	return "fake 0.0.1", nil
}

func (f *fakeToolchain) Prime(ctx context.Context, projectDir, logDir string) (int, error) {
	f.primed = append(f.primed, projectDir)
	return f.primeCode, f.primeErr
}

func (f *fakeToolchain) Run(ctx context.Context, target structs.Target, projectDir, logDir string) (int, error) {
	f.runs = append(f.runs, target)
	if f.runPanic != nil {
		panic(f.runPanic)
	}
	return f.runCode, f.runErr
}

// statusWith matches a StatusUpdate by status and, optionally, exit code.
type statusWith struct {
	status structs.Status
	code   *int
}

func (m statusWith) Matches(x interface{}) bool {
	upd, ok := x.(*structs.StatusUpdate)
	if !ok || upd.Status != m.status {
		return false
	}
	if m.code == nil {
		return true
	}
	return upd.ExitCode != nil && *upd.ExitCode == *m.code
}

func (m statusWith) String() string {
	if m.code != nil {
		return fmt.Sprintf("status update %s exit_code %d", m.status, *m.code)
	}
	return fmt.Sprintf("status update %s", m.status)
}

func exitCode(c int) *int { return &c }

func newTestWorker(t *testing.T, tc *fakeToolchain) (*Worker, *broker_mock.MockBroker, string) {
	bk := broker_mock.NewMockBroker(gomock.NewController(t))
	root := t.TempDir()
	w := New(bk, tc, &Config{
		WorkspaceRoot: root,
		LogDir:        filepath.Join(root, "_logs"),
	})
	return w, bk, root
}

func TestProcessSuccess(t *testing.T) {
	tc := &fakeToolchain{}
	w, bk, root := newTestWorker(t, tc)

	gomock.InOrder(
		bk.EXPECT().SetStatus(gomock.Any(), "j1", statusWith{status: structs.RUNNING}).Return(nil),
		bk.EXPECT().SetStatus(gomock.Any(), "j1", statusWith{status: structs.SUCCESS}).Return(nil),
	)

	w.process([]byte(`{"id":"j1","project_dir":"` + root + `","target":"analyze"}`))

	assert.Equal(t, []structs.Target{structs.TargetAnalyze}, tc.runs)
	assert.Equal(t, []string{root}, tc.primed)
	assert.Equal(t, "", w.cur.get())
}

func TestProcessMalformedPayloadSkipped(t *testing.T) {
	// no SetStatus expectations: a payload with no id has nothing to report
	// against and must not touch the broker
	tc := &fakeToolchain{}
	w, _, _ := newTestWorker(t, tc)

	w.process([]byte(`{"project_dir":"/work/app"}`))
	w.process([]byte(`{"id":"j2"}`))
	w.process([]byte(`not json`))

	assert.Empty(t, tc.runs)
	assert.Empty(t, tc.primed)
}

func TestProcessUnknownTarget(t *testing.T) {
	tc := &fakeToolchain{}
	w, bk, root := newTestWorker(t, tc)

	gomock.InOrder(
		bk.EXPECT().SetStatus(gomock.Any(), "j3", statusWith{status: structs.RUNNING}).Return(nil),
		bk.EXPECT().SetStatus(gomock.Any(), "j3", statusWith{status: structs.FAILED, code: exitCode(2)}).Return(nil),
	)

	w.process([]byte(`{"id":"j3","project_dir":"` + root + `","target":"bogus"}`))

	// toolchain never invoked, not even priming
	assert.Empty(t, tc.runs)
	assert.Empty(t, tc.primed)
}

func TestProcessMissingProjectDir(t *testing.T) {
	tc := &fakeToolchain{}
	w, bk, _ := newTestWorker(t, tc)

	gomock.InOrder(
		bk.EXPECT().SetStatus(gomock.Any(), "j4", statusWith{status: structs.RUNNING}).Return(nil),
		bk.EXPECT().SetStatus(gomock.Any(), "j4", statusWith{status: structs.FAILED, code: exitCode(2)}).Return(nil),
	)

	w.process([]byte(`{"id":"j4","project_dir":"missing/app"}`))

	assert.Empty(t, tc.runs)
}

func TestProcessPrimeFailureFailsJob(t *testing.T) {
	tc := &fakeToolchain{primeCode: 69}
	w, bk, root := newTestWorker(t, tc)

	gomock.InOrder(
		bk.EXPECT().SetStatus(gomock.Any(), "j5", statusWith{status: structs.RUNNING}).Return(nil),
		bk.EXPECT().SetStatus(gomock.Any(), "j5", statusWith{status: structs.FAILED, code: exitCode(69)}).Return(nil),
	)

	w.process([]byte(`{"id":"j5","project_dir":"` + root + `"}`))

	// the main action is not attempted when dependency fetch fails
	assert.Empty(t, tc.runs)
}

func TestProcessRunnerFailurePropagatesExitCode(t *testing.T) {
	tc := &fakeToolchain{runCode: 9}
	w, bk, root := newTestWorker(t, tc)

	gomock.InOrder(
		bk.EXPECT().SetStatus(gomock.Any(), "j6", statusWith{status: structs.RUNNING}).Return(nil),
		bk.EXPECT().SetStatus(gomock.Any(), "j6", statusWith{status: structs.FAILED, code: exitCode(9)}).Return(nil),
	)

	w.process([]byte(`{"id":"j6","project_dir":"` + root + `","target":"test"}`))

	assert.Equal(t, []structs.Target{structs.TargetTest}, tc.runs)
}

func TestProcessToolchainStartFailure(t *testing.T) {
	tc := &fakeToolchain{runErr: fmt.Errorf("binary vanished")}
	w, bk, root := newTestWorker(t, tc)

	gomock.InOrder(
		bk.EXPECT().SetStatus(gomock.Any(), "j7", statusWith{status: structs.RUNNING}).Return(nil),
		bk.EXPECT().SetStatus(gomock.Any(), "j7", statusWith{status: structs.FAILED, code: exitCode(1)}).Return(nil),
	)

	w.process([]byte(`{"id":"j7","project_dir":"` + root + `"}`))
}

func TestProcessPublishFailureDoesNotAbort(t *testing.T) {
	// a broker hiccup on the running write must not stop the job; the
	// terminal write is still attempted
	tc := &fakeToolchain{}
	w, bk, root := newTestWorker(t, tc)

	gomock.InOrder(
		bk.EXPECT().SetStatus(gomock.Any(), "j8", statusWith{status: structs.RUNNING}).Return(fmt.Errorf("store down")),
		bk.EXPECT().SetStatus(gomock.Any(), "j8", statusWith{status: structs.SUCCESS}).Return(nil),
	)

	w.process([]byte(`{"id":"j8","project_dir":"` + root + `"}`))

	assert.Equal(t, []structs.Target{structs.TargetAnalyze}, tc.runs)
}

func TestRunExitsOnCancelWhileBlocked(t *testing.T) {
	tc := &fakeToolchain{}
	w, bk, _ := newTestWorker(t, tc)

	ctx, cancel := context.WithCancel(context.Background())

	bk.EXPECT().Ping(gomock.Any()).Return(nil)
	bk.EXPECT().Dequeue(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]byte, error) {
		// simulate a signal arriving mid-block; no job is claimed
		cancel()
		return nil, ctx.Err()
	})

	err := w.Run(ctx)

	assert.Nil(t, err)
	assert.Empty(t, tc.runs)
}

func TestRunProcessesThenStops(t *testing.T) {
	tc := &fakeToolchain{}
	w, bk, root := newTestWorker(t, tc)

	ctx, cancel := context.WithCancel(context.Background())
	payload := []byte(`{"id":"j9","project_dir":"` + root + `"}`)

	bk.EXPECT().Ping(gomock.Any()).Return(nil)
	first := bk.EXPECT().Dequeue(gomock.Any()).Return(payload, nil)
	bk.EXPECT().Dequeue(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]byte, error) {
		cancel()
		return nil, ctx.Err()
	}).After(first)
	gomock.InOrder(
		bk.EXPECT().SetStatus(gomock.Any(), "j9", statusWith{status: structs.RUNNING}).Return(nil),
		bk.EXPECT().SetStatus(gomock.Any(), "j9", statusWith{status: structs.SUCCESS}).Return(nil),
	)

	err := w.Run(ctx)

	assert.Nil(t, err)
	assert.Equal(t, []structs.Target{structs.TargetAnalyze}, tc.runs)
}

func TestRunTransientDequeueErrorLoops(t *testing.T) {
	tc := &fakeToolchain{}
	w, bk, _ := newTestWorker(t, tc)

	ctx, cancel := context.WithCancel(context.Background())

	bk.EXPECT().Ping(gomock.Any()).Return(nil)
	first := bk.EXPECT().Dequeue(gomock.Any()).Return(nil, fmt.Errorf("broker blip"))
	bk.EXPECT().Dequeue(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]byte, error) {
		cancel()
		return nil, ctx.Err()
	}).After(first)

	err := w.Run(ctx)

	assert.Nil(t, err)
}

func TestCrashMidJobPublishesCrashed(t *testing.T) {
	// a fault inside the toolchain unwinds through process; the in-flight id
	// must survive unwinding so the crash reporter can attribute it
	tc := &fakeToolchain{runPanic: "boom"}
	w, bk, root := newTestWorker(t, tc)

	gomock.InOrder(
		bk.EXPECT().SetStatus(gomock.Any(), "j11", statusWith{status: structs.RUNNING}).Return(nil),
		bk.EXPECT().SetStatus(gomock.Any(), "j11", statusWith{status: structs.CRASHED, code: exitCode(2)}).Return(nil),
	)

	assert.PanicsWithValue(t, "boom", func() {
		// mirror Worker.Run: the crash reporter is deferred around the loop
		defer w.reportCrash()
		w.process([]byte(`{"id":"j11","project_dir":"` + root + `"}`))
	})
}

func TestCrashPublishesBestEffort(t *testing.T) {
	tc := &fakeToolchain{}
	w, bk, _ := newTestWorker(t, tc)

	// the publish's own failure must not mask the original panic
	bk.EXPECT().
		SetStatus(gomock.Any(), "j10", statusWith{status: structs.CRASHED, code: exitCode(2)}).
		Return(fmt.Errorf("store down"))

	w.cur.set("j10")
	assert.PanicsWithValue(t, "boom", func() {
		defer w.reportCrash()
		panic("boom")
	})
}

func TestCrashWithNoJobInFlight(t *testing.T) {
	// no in-flight id means nothing to attribute; the broker is untouched
	tc := &fakeToolchain{}
	w, _, _ := newTestWorker(t, tc)

	assert.PanicsWithValue(t, "boom", func() {
		defer w.reportCrash()
		panic("boom")
	})
}
