package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/omegabuild/buildworker/pkg/errors"
	"github.com/omegabuild/buildworker/pkg/structs"
)

type optsEnqueue struct {
	optsGeneral
	optsBroker

	ProjectDir string `long:"project-dir" required:"true" description:"Project directory the job should operate on"`

	Target string `long:"target" default:"analyze" description:"Build action to run (analyze, test, build-web, build-apk)"`

	Platform string `long:"platform" default:"web" description:"Platform hint for build variants"`
}

func (c *optsEnqueue) Execute(args []string) error {
	// Operator / debug tool; the real producer is the enqueuing system.
	// Uses the same payload definition the worker consumes.
	target := structs.ToTarget(c.Target)
	if target == "" {
		return fmt.Errorf("%w: %s", errors.ErrUnknownTarget, c.Target)
	}

	bk, err := c.connect()
	if err != nil {
		return err
	}
	defer bk.Close()

	job := &structs.Job{
		ID:         uuid.NewString(),
		ProjectDir: c.ProjectDir,
		Target:     target,
		Platform:   c.Platform,
	}
	if err := bk.Enqueue(context.Background(), job); err != nil {
		return err
	}

	fmt.Println(job.ID)
	return nil
}
