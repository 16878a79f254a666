package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/omegabuild/buildworker/internal/utils"
)

// RunLogged runs argv inside dir, streaming combined stdout/stderr to a log
// file at logPath. The command's exit code is returned as a first-class
// value; the error return is reserved for failures to start the command or
// open the log, not for non-zero exits.
func RunLogged(ctx context.Context, argv []string, dir, logPath string) (int, error) {
	if err := utils.EnsureDir(filepath.Dir(logPath)); err != nil {
		return 0, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.Create(logPath)
	if err != nil {
		return 0, fmt.Errorf("open log %s: %w", logPath, err)
	}
	defer f.Close()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = f
	cmd.Stderr = f

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("run %s: %w", argv[0], err)
}
