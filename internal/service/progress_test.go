package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpilot/mailpilot/internal/database"
	"github.com/mailpilot/mailpilot/internal/model"
)

// recordingHook answers SET and GET from memory and records every command
// without touching the network.
type recordingHook struct {
	mu     sync.Mutex
	cmds   [][]interface{}
	values map[string]string
}

func (h *recordingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *recordingHook) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		args := cmd.Args()
		h.cmds = append(h.cmds, args)

		switch c := cmd.(type) {
		case *redis.StatusCmd:
			if cmd.Name() == "set" {
				h.values[args[1].(string)] = string(args[2].([]byte))
			}
			c.SetVal("OK")
		case *redis.StringCmd:
			v, ok := h.values[args[1].(string)]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(v)
		}
		return nil
	}
}

func (h *recordingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *recordingHook) names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, args := range h.cmds {
		out = append(out, args[0].(string))
	}
	return out
}

func newHookedRedis(t *testing.T) (*database.Redis, *recordingHook) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { client.Close() })
	hook := &recordingHook{values: make(map[string]string)}
	client.AddHook(hook)
	return &database.Redis{Client: client}, hook
}

func TestRedisProgressStoreSaveOnlySetsKey(t *testing.T) {
	r, hook := newHookedRedis(t)
	store := NewRedisProgressStore(r, time.Hour)

	p := model.SendSummary{BatchID: "b1", Sent: 1, Total: 2}.Progress(false)
	require.NoError(t, store.Save(context.Background(), owner, p))

	assert.Equal(t, []string{"set"}, hook.names())
	args := hook.cmds[0]
	assert.Equal(t, "send:progress:"+owner, args[1])
	assert.Equal(t, []interface{}{"ex", int64(3600)}, args[3:])

	got, err := store.Load(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, p, *got)
}

func TestRedisProgressStoreLoadMissing(t *testing.T) {
	r, _ := newHookedRedis(t)
	store := NewRedisProgressStore(r, 0)

	_, err := store.Load(context.Background(), owner)
	assert.ErrorIs(t, err, ErrNoProgress)
}
