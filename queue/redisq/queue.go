// Package redisq provides a Redis-backed Queue implementation. Due jobs live
// in a per-name sorted set scored by their earliest run time; claimed jobs
// move to a processing sorted set scored by their claim deadline, so a
// consumer crash makes them visible again (at-least-once).
package redisq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hookline/hookline/queue"
)

// DefaultClaimTTL is how long a claimed job stays invisible before it becomes
// eligible for redelivery.
const DefaultClaimTTL = 30 * time.Second

// compile-time interface check.
var _ queue.Queue = (*Queue)(nil)

// Queue is a Redis-backed implementation of queue.Queue.
type Queue struct {
	rdb      goredis.UniversalClient
	prefix   string
	claimTTL time.Duration
}

// Option configures a Queue.
type Option func(*Queue)

// WithPrefix sets the Redis key prefix (default "hookline:q").
func WithPrefix(prefix string) Option {
	return func(q *Queue) { q.prefix = prefix }
}

// WithClaimTTL sets the claim visibility timeout.
func WithClaimTTL(d time.Duration) Option {
	return func(q *Queue) { q.claimTTL = d }
}

// New creates a Redis-backed queue.
func New(rdb goredis.UniversalClient, opts ...Option) *Queue {
	q := &Queue{
		rdb:      rdb,
		prefix:   "hookline:q",
		claimTTL: DefaultClaimTTL,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) schedKey(name string) string { return q.prefix + ":" + name + ":sched" }
func (q *Queue) procKey(name string) string  { return q.prefix + ":" + name + ":proc" }
func (q *Queue) jobKey(name, jobID string) string {
	return q.prefix + ":" + name + ":job:" + jobID
}

// scoreFromTime converts a time.Time to a sorted set score (unix seconds as
// float64).
func scoreFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// claimScript atomically promotes expired claims back to the schedule, then
// claims due jobs by moving them into the processing set.
// KEYS[1] = sched zset, KEYS[2] = proc zset
// ARGV[1] = now score, ARGV[2] = limit, ARGV[3] = claim deadline score
var claimScript = goredis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for i, id in ipairs(expired) do
    redis.call('ZREM', KEYS[2], id)
    redis.call('ZADD', KEYS[1], ARGV[1], id)
end
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #ids == 0 then return {} end
for i, id in ipairs(ids) do
    redis.call('ZREM', KEYS[1], id)
    redis.call('ZADD', KEYS[2], ARGV[3], id)
end
return ids
`)

// Enqueue submits a single job.
func (q *Queue) Enqueue(ctx context.Context, job *queue.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redisq: marshal job: %w", err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, q.jobKey(job.Name, job.ID), raw, 0)
	pipe.ZAdd(ctx, q.schedKey(job.Name), goredis.Z{
		Score:  scoreFromTime(job.RunAt),
		Member: job.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisq: enqueue: %w", err)
	}
	return nil
}

// EnqueueBatch submits multiple jobs in one transactional pipeline.
func (q *Queue) EnqueueBatch(ctx context.Context, jobs []*queue.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	pipe := q.rdb.TxPipeline()
	for _, job := range jobs {
		raw, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("redisq: marshal job: %w", err)
		}
		pipe.Set(ctx, q.jobKey(job.Name, job.ID), raw, 0)
		pipe.ZAdd(ctx, q.schedKey(job.Name), goredis.Z{
			Score:  scoreFromTime(job.RunAt),
			Member: job.ID,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisq: enqueue batch: %w", err)
	}
	return nil
}

// Dequeue claims up to limit due jobs with the given name.
func (q *Queue) Dequeue(ctx context.Context, name string, limit int) ([]*queue.Job, error) {
	now := time.Now()
	nowScore := strconv.FormatFloat(scoreFromTime(now), 'f', -1, 64)
	deadline := strconv.FormatFloat(scoreFromTime(now.Add(q.claimTTL)), 'f', -1, 64)

	ids, err := claimScript.Run(ctx, q.rdb,
		[]string{q.schedKey(name), q.procKey(name)},
		nowScore, limit, deadline,
	).StringSlice()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redisq: claim script: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	jobs := make([]*queue.Job, 0, len(ids))
	for _, jobID := range ids {
		raw, err := q.rdb.Get(ctx, q.jobKey(name, jobID)).Bytes()
		if err != nil {
			if err == goredis.Nil {
				// Claimed ID without a body: drop the orphaned claim.
				q.rdb.ZRem(ctx, q.procKey(name), jobID)
				continue
			}
			return nil, fmt.Errorf("redisq: get job %s: %w", jobID, err)
		}

		var job queue.Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return nil, fmt.Errorf("redisq: unmarshal job %s: %w", jobID, err)
		}
		jobs = append(jobs, &job)
	}

	return jobs, nil
}

// Ack removes a claimed job.
func (q *Queue) Ack(ctx context.Context, job *queue.Job) error {
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, q.procKey(job.Name), job.ID)
	del := pipe.Del(ctx, q.jobKey(job.Name, job.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisq: ack: %w", err)
	}
	if del.Val() == 0 {
		return queue.ErrJobNotFound
	}
	return nil
}

// Nack releases a claimed job for redelivery after the given delay.
func (q *Queue) Nack(ctx context.Context, job *queue.Job, delay time.Duration) error {
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, q.procKey(job.Name), job.ID)
	pipe.ZAdd(ctx, q.schedKey(job.Name), goredis.Z{
		Score:  scoreFromTime(time.Now().Add(delay)),
		Member: job.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisq: nack: %w", err)
	}
	return nil
}
