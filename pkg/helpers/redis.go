package helpers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-account-service/pkg/mailer"
)

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

const (
	DefaultDeadLetterKey = "email:dead"
	DefaultDeadLetterMax = 1000
)

// DeadLetter is one failed email as stored in redis.
type DeadLetter struct {
	Job      mailer.EmailJob `json:"job"`
	Error    string          `json:"error"`
	FailedAt time.Time       `json:"failed_at"`
}

// RedisDeadLetters keeps the most recent failed email jobs on a capped list.
type RedisDeadLetters struct {
	Client *redis.Client
	Key    string
	Max    int64
	now    func() time.Time
}

func NewRedisDeadLetters(rdb *redis.Client) *RedisDeadLetters {
	return &RedisDeadLetters{Client: rdb, Key: DefaultDeadLetterKey, Max: DefaultDeadLetterMax, now: time.Now}
}

func (r *RedisDeadLetters) encode(job mailer.EmailJob, cause error) ([]byte, error) {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	dl := DeadLetter{Job: job, FailedAt: now().UTC()}
	if cause != nil {
		dl.Error = cause.Error()
	}
	return json.Marshal(dl)
}

// Push implements mailer.DeadLetterSink.
func (r *RedisDeadLetters) Push(ctx context.Context, job mailer.EmailJob, cause error) error {
	b, err := r.encode(job, cause)
	if err != nil {
		return err
	}
	pipe := r.Client.TxPipeline()
	pipe.LPush(ctx, r.Key, b)
	if r.Max > 0 {
		pipe.LTrim(ctx, r.Key, 0, r.Max-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n dead letters, newest first.
func (r *RedisDeadLetters) Recent(ctx context.Context, n int64) ([]DeadLetter, error) {
	if n <= 0 {
		return []DeadLetter{}, nil
	}
	raw, err := r.Client.LRange(ctx, r.Key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	return decodeDeadLetters(raw), nil
}

// decodeDeadLetters skips entries that are not valid JSON.
func decodeDeadLetters(raw []string) []DeadLetter {
	out := make([]DeadLetter, 0, len(raw))
	for _, s := range raw {
		var dl DeadLetter
		if err := json.Unmarshal([]byte(s), &dl); err != nil {
			continue
		}
		out = append(out, dl)
	}
	return out
}
