package structs

import (
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	// transient state
	RUNNING Status = "running"

	// end states
	SUCCESS Status = "success"
	FAILED  Status = "failed"
	CRASHED Status = "crashed"
)

func IsFinalStatus(status Status) bool {
	switch status {
	case SUCCESS, FAILED, CRASHED:
		return true
	default:
		return false
	}
}

func ToStatus(s string) Status {
	switch strings.ToLower(s) {
	case "running":
		return RUNNING
	case "success":
		return SUCCESS
	case "failed":
		return FAILED
	case "crashed":
		return CRASHED
	default:
		return ""
	}
}

// StatusUpdate is one write to a job's status record.
//
// A job sees exactly two of these per invocation: a RUNNING update when it
// begins and a single terminal update when it ends. The worker is the sole
// writer; readers (dashboards, the enqueuing system) only ever observe a
// whole update since each is applied atomically.
type StatusUpdate struct {
	// Status is the state this update moves the job to.
	Status Status

	// StartedAt is set on the RUNNING update only.
	StartedAt time.Time

	// FinishedAt is set on terminal updates only.
	FinishedAt time.Time

	// Msg is a short human readable note ("started", "completed", ...).
	Msg string

	// ExitCode is set on FAILED and CRASHED updates.
	ExitCode *int
}

// NewRunning marks a job as started.
func NewRunning(now time.Time) *StatusUpdate {
	return &StatusUpdate{Status: RUNNING, StartedAt: now, Msg: "started"}
}

// NewSuccess marks a job as finished cleanly.
func NewSuccess(now time.Time) *StatusUpdate {
	return &StatusUpdate{Status: SUCCESS, FinishedAt: now, Msg: "completed"}
}

// NewFailed marks a job as finished with the given exit code.
func NewFailed(exitCode int, msg string, now time.Time) *StatusUpdate {
	return &StatusUpdate{Status: FAILED, FinishedAt: now, Msg: msg, ExitCode: &exitCode}
}

// NewCrashed marks a job as abandoned by a worker fault.
func NewCrashed(exitCode int, now time.Time) *StatusUpdate {
	return &StatusUpdate{Status: CRASHED, FinishedAt: now, Msg: "worker crashed", ExitCode: &exitCode}
}

// Fields flattens the update into the field map written to the broker's
// status record. Timestamps are RFC 3339 UTC; unset fields are omitted so an
// update never clears fields written by an earlier one.
func (u *StatusUpdate) Fields() map[string]interface{} {
	f := map[string]interface{}{"status": string(u.Status)}
	if !u.StartedAt.IsZero() {
		f["started_at"] = u.StartedAt.UTC().Format(time.RFC3339)
	}
	if !u.FinishedAt.IsZero() {
		f["finished_at"] = u.FinishedAt.UTC().Format(time.RFC3339)
	}
	if u.Msg != "" {
		f["msg"] = u.Msg
	}
	if u.ExitCode != nil {
		f["exit_code"] = strconv.Itoa(*u.ExitCode)
	}
	return f
}
