package broker

import (
	"context"

	"github.com/omegabuild/buildworker/pkg/structs"
)

// Broker is the shared queue / status store jobs are handed off through.
//
// The queue's pop is atomic across worker instances, so two workers never
// receive the same job. Status writes are per-field-set atomic; a reader
// polling mid-execution observes either no record or a coherent one, never
// a partial write.
type Broker interface {
	// Ping checks the broker is reachable.
	Ping(ctx context.Context) error

	// Dequeue blocks for the next raw job payload, up to a short internal
	// timeout. Returns (nil, nil) when no job arrived in time; callers are
	// expected to loop.
	Dequeue(ctx context.Context) ([]byte, error)

	// Enqueue pushes a job onto the shared queue.
	Enqueue(ctx context.Context, job *structs.Job) error

	// SetStatus applies one status transition to the record for jobID.
	SetStatus(ctx context.Context, jobID string, upd *structs.StatusUpdate) error

	// Status fetches the status record for jobID. An empty map means no
	// record exists.
	Status(ctx context.Context, jobID string) (map[string]string, error)

	// Close releases the underlying connection.
	Close() error
}
