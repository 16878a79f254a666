package toolchain

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/omegabuild/buildworker/pkg/errors"
	"github.com/omegabuild/buildworker/pkg/structs"
)

const DefaultBin = "flutter"

// Toolchain runs build actions on behalf of the worker. Implementations
// block until the underlying command exits; there is no mid-run cancel
// beyond the passed context.
type Toolchain interface {
	// Check verifies the toolchain binary is available. Called once at
	// startup; failure is fatal.
	Check() error

	// Version returns the toolchain's version banner. Used as a warm-up
	// probe whose failure must not abort startup.
	Version(ctx context.Context) (string, error)

	// Prime fetches project dependencies when a package manifest is present
	// in projectDir, logging to <logDir>/pub-get.log. Returns the step's
	// exit code, or 0 when no manifest exists.
	Prime(ctx context.Context, projectDir, logDir string) (int, error)

	// Run executes the command for target inside projectDir, logging to
	// <logDir>/<target>.log, and returns its exit code.
	Run(ctx context.Context, target structs.Target, projectDir, logDir string) (int, error)
}

// Flutter invokes the flutter binary. The toolchain itself is opaque to the
// worker; we only care about which argv each target maps to and the exit
// code that comes back.
type Flutter struct {
	Bin string
}

func NewFlutter(bin string) *Flutter {
	if bin == "" {
		bin = DefaultBin
	}
	return &Flutter{Bin: bin}
}

func (f *Flutter) Check() error {
	if _, err := exec.LookPath(f.Bin); err != nil {
		return fmt.Errorf("toolchain binary %q not found: %w", f.Bin, err)
	}
	return nil
}

func (f *Flutter) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, f.Bin, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (f *Flutter) argv(target structs.Target) []string {
	switch target {
	case structs.TargetAnalyze:
		return []string{f.Bin, "analyze", "--no-pub"}
	case structs.TargetTest:
		return []string{f.Bin, "test", "--machine"}
	case structs.TargetBuildWeb:
		return []string{f.Bin, "build", "web", "--release"}
	case structs.TargetBuildAPK:
		return []string{f.Bin, "build", "apk", "--release"}
	default:
		return nil
	}
}

func (f *Flutter) Prime(ctx context.Context, projectDir, logDir string) (int, error) {
	name, ok := ProjectName(projectDir)
	if !ok {
		return 0, nil
	}
	if name != "" {
		log.Println("[toolchain] priming dependencies for", name)
	}
	return RunLogged(ctx, []string{f.Bin, "pub", "get"}, projectDir, filepath.Join(logDir, "pub-get.log"))
}

func (f *Flutter) Run(ctx context.Context, target structs.Target, projectDir, logDir string) (int, error) {
	argv := f.argv(target)
	if argv == nil {
		return 0, fmt.Errorf("%w: %s", errors.ErrUnknownTarget, target)
	}
	return RunLogged(ctx, argv, projectDir, filepath.Join(logDir, string(target)+".log"))
}
