package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

func TestRetryDelayFunc_ExponentialWithJitter(t *testing.T) {
	cfg := Config{RetryBase: 30 * time.Second, RetryMax: 15 * time.Minute}
	fn := retryDelayFunc(cfg)
	task := asynq.NewTask("mailing:dispatch", nil)
	err := errors.New("transient")

	first := fn(0, err, task)
	assert.GreaterOrEqual(t, first, 30*time.Second)
	assert.Less(t, first, 40*time.Second)

	third := fn(2, err, task)
	assert.GreaterOrEqual(t, third, 2*time.Minute)

	// Past the cap the delay stays bounded.
	late := fn(20, err, task)
	assert.LessOrEqual(t, late, cfg.RetryMax+cfg.RetryMax/4)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, 5, cfg.MaxRetry)
	assert.NotZero(t, cfg.RetryBase)
}
