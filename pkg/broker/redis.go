package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omegabuild/buildworker/pkg/structs"
)

const (
	// statusKeyPrefix + job id addresses the job's status record.
	statusKeyPrefix = "job:"

	// dequeueBlock bounds a single BLPOP; the worker loops on timeout so the
	// overall wait is unbounded but shutdown signals are noticed promptly.
	dequeueBlock = 5 * time.Second
)

// Redis is a Broker backed by a Redis list (queue) and per-job hashes
// (status records). The wire format is shared with the enqueuing system:
// JSON payloads on the list, string fields in the hash.
type Redis struct {
	opts *Options
	cli  *redis.Client
}

func NewRedisBroker(opts *Options) (*Redis, error) {
	rOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}
	return &Redis{opts: opts, cli: redis.NewClient(rOpts)}, nil
}

func statusKey(jobID string) string {
	return statusKeyPrefix + jobID
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}

func (r *Redis) Dequeue(ctx context.Context) ([]byte, error) {
	res, err := r.cli.BLPop(ctx, dequeueBlock, r.opts.Queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BLPOP returns [key, value]
	if len(res) != 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

func (r *Redis) Enqueue(ctx context.Context, job *structs.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job payload: %w", err)
	}
	return r.cli.RPush(ctx, r.opts.Queue, raw).Err()
}

func (r *Redis) SetStatus(ctx context.Context, jobID string, upd *structs.StatusUpdate) error {
	// one HSET per transition; readers never see a partial record
	return r.cli.HSet(ctx, statusKey(jobID), upd.Fields()).Err()
}

func (r *Redis) Status(ctx context.Context, jobID string) (map[string]string, error) {
	return r.cli.HGetAll(ctx, statusKey(jobID)).Result()
}

func (r *Redis) Close() error {
	return r.cli.Close()
}
