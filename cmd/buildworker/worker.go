package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/omegabuild/buildworker/internal/toolchain"
	"github.com/omegabuild/buildworker/internal/worker"
)

type optsWorker struct {
	optsGeneral
	optsBroker

	WorkspaceRoot string `long:"workspace-root" env:"WORKSPACE_DIR" default:"/workspace" description:"Base directory relative project paths resolve under"`

	LogDir string `long:"log-dir" env:"BUILD_LOG_DIR" description:"Root for per-job step logs (default: <workspace-root>/_logs)"`

	FlutterBin string `long:"flutter-bin" env:"FLUTTER_BIN" default:"flutter" description:"Toolchain binary to invoke"`
}

func (c *optsWorker) Execute(args []string) error {
	// This runs the long-lived worker daemon. It claims one job at a time
	// from the shared queue and reports outcomes through the broker's
	// status records; run more instances of this command against the same
	// queue to scale out.
	if c.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	tc := toolchain.NewFlutter(c.FlutterBin)
	if err := tc.Check(); err != nil {
		// missing toolchain is the one genuinely fatal startup condition
		return err
	}

	bk, err := c.connect()
	if err != nil {
		return err
	}
	defer bk.Close()

	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.WorkspaceRoot, "_logs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := worker.New(bk, tc, &worker.Config{
		WorkspaceRoot: c.WorkspaceRoot,
		LogDir:        c.LogDir,
	})
	return w.Run(ctx)
}
