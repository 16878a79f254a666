package structs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/omegabuild/buildworker/pkg/errors"
)

// Target is the build action a job requests. Only targets on the allow-list
// below are ever dispatched; anything else is rejected before the toolchain
// is invoked.
type Target string

const (
	TargetAnalyze  Target = "analyze"
	TargetTest     Target = "test"
	TargetBuildWeb Target = "build-web"
	TargetBuildAPK Target = "build-apk"
)

const (
	DefaultTarget   = TargetAnalyze
	DefaultPlatform = "web"
)

func ToTarget(s string) Target {
	switch strings.ToLower(s) {
	case "analyze":
		return TargetAnalyze
	case "test":
		return TargetTest
	case "build-web":
		return TargetBuildWeb
	case "build-apk":
		return TargetBuildAPK
	default:
		return ""
	}
}

// Job is one build request popped from the shared queue.
//
// A Job is immutable once dequeued; the worker never rewrites or requeues it.
type Job struct {
	// ID is an opaque unique identifier minted by the producer.
	ID string `json:"id"`

	// ProjectDir is the source tree to operate on, absolute or relative to
	// the worker's workspace root.
	ProjectDir string `json:"project_dir"`

	// Target is the requested build action.
	Target Target `json:"target"`

	// Platform is a hint reserved for future target variants. Accepted and
	// ignored by current actions.
	Platform string `json:"platform"`
}

// ParseJob decodes a raw queue payload, rejecting it when id or project_dir
// is missing and filling in defaults for target and platform.
func ParseJob(raw []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("decode job payload: %w", err)
	}
	if j.ID == "" {
		return nil, errors.ErrMissingID
	}
	if j.ProjectDir == "" {
		return nil, errors.ErrMissingProjectDir
	}
	if j.Target == "" {
		j.Target = DefaultTarget
	}
	if j.Platform == "" {
		j.Platform = DefaultPlatform
	}
	return &j, nil
}
