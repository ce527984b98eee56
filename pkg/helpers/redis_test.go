package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-account-service/pkg/mailer"
)

func TestRedisDeadLetters_Encode(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &RedisDeadLetters{Key: DefaultDeadLetterKey, now: func() time.Time { return at }}

	b, err := r.encode(mailer.EmailJob{To: "a@example.com", Template: "verify_email"}, errors.New("smtp down"))
	require.NoError(t, err)

	var dl DeadLetter
	require.NoError(t, json.Unmarshal(b, &dl))
	assert.Equal(t, "a@example.com", dl.Job.To)
	assert.Equal(t, "verify_email", dl.Job.Template)
	assert.Equal(t, "smtp down", dl.Error)
	assert.True(t, at.Equal(dl.FailedAt))
}

func TestNewRedisDeadLetters_Defaults(t *testing.T) {
	r := NewRedisDeadLetters(nil)
	assert.Equal(t, "email:dead", r.Key)
	assert.EqualValues(t, 1000, r.Max)
}

func TestDecodeDeadLetters(t *testing.T) {
	r := &RedisDeadLetters{now: func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }}
	first, err := r.encode(mailer.EmailJob{To: "a@example.com"}, errors.New("timeout"))
	require.NoError(t, err)
	second, err := r.encode(mailer.EmailJob{To: "b@example.com"}, nil)
	require.NoError(t, err)

	got := decodeDeadLetters([]string{string(first), "not json", string(second)})

	require.Len(t, got, 2)
	assert.Equal(t, "a@example.com", got[0].Job.To)
	assert.Equal(t, "timeout", got[0].Error)
	assert.Equal(t, "b@example.com", got[1].Job.To)
	assert.Empty(t, got[1].Error)
}

func TestRedisDeadLetters_RecentNonPositive(t *testing.T) {
	got, err := NewRedisDeadLetters(nil).Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
