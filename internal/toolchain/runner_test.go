package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunLoggedCapturesExitCode(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "step.log")

	code, err := RunLogged(context.Background(), []string{"sh", "-c", "echo onward; exit 65"}, t.TempDir(), logPath)

	assert.Nil(t, err)
	assert.Equal(t, 65, code)

	out, rerr := os.ReadFile(logPath)
	assert.Nil(t, rerr)
	assert.Contains(t, string(out), "onward")
}

func TestRunLoggedZeroOnSuccess(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "step.log")

	code, err := RunLogged(context.Background(), []string{"sh", "-c", "true"}, t.TempDir(), logPath)

	assert.Nil(t, err)
	assert.Equal(t, 0, code)
}

func TestRunLoggedCombinesStderr(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "step.log")

	_, err := RunLogged(context.Background(), []string{"sh", "-c", "echo oops 1>&2"}, t.TempDir(), logPath)

	assert.Nil(t, err)
	out, rerr := os.ReadFile(logPath)
	assert.Nil(t, rerr)
	assert.Contains(t, string(out), "oops")
}

func TestRunLoggedMissingBinary(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "step.log")

	_, err := RunLogged(context.Background(), []string{"/nonexistent/toolchain"}, t.TempDir(), logPath)

	assert.NotNil(t, err)
}

func TestRunLoggedCreatesLogDir(t *testing.T) {
	// per-job log dirs are created on demand; nested path must not fail
	logPath := filepath.Join(t.TempDir(), "jobs", "j1", "step.log")

	code, err := RunLogged(context.Background(), []string{"sh", "-c", "true"}, t.TempDir(), logPath)

	assert.Nil(t, err)
	assert.Equal(t, 0, code)
}
