package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeSource struct {
	name  string
	value string
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Load(context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.value, nil
}

func TestGet_FirstSourceWins(t *testing.T) {
	remote := &fakeSource{name: "store", value: `{"from":"store"}`}
	file := &fakeSource{name: "file", value: `{"from":"file"}`}

	c := NewCache([]Source{remote, file}, time.Minute, zap.NewNop().Sugar())

	assert.Equal(t, `{"from":"store"}`, c.Get(context.Background()))
	assert.Zero(t, file.calls)
}

func TestGet_FallsThroughFailedSources(t *testing.T) {
	remote := &fakeSource{name: "store", err: errors.New("connection refused")}
	file := &fakeSource{name: "file", err: errors.New("no such file")}
	def := &fakeSource{name: "default", value: "{}"}

	c := NewCache([]Source{remote, file, def}, time.Minute, zap.NewNop().Sugar())

	assert.Equal(t, "{}", c.Get(context.Background()))
}

func TestGet_CachesUntilExpiry(t *testing.T) {
	remote := &fakeSource{name: "store", value: "{}"}
	c := NewCache([]Source{remote}, time.Minute, zap.NewNop().Sugar())

	c.Get(context.Background())
	c.Get(context.Background())
	c.Get(context.Background())

	assert.Equal(t, 1, remote.calls)
}

func TestGet_RefreshesAfterExpiry(t *testing.T) {
	remote := &fakeSource{name: "store", value: "{}"}
	c := NewCache([]Source{remote}, time.Nanosecond, zap.NewNop().Sugar())

	c.Get(context.Background())
	time.Sleep(time.Millisecond)
	c.Get(context.Background())

	assert.Equal(t, 2, remote.calls)
}

func TestGet_KeepsStaleValueWhenEverySourceFails(t *testing.T) {
	remote := &fakeSource{name: "store", value: `{"v":1}`}
	c := NewCache([]Source{remote}, time.Nanosecond, zap.NewNop().Sugar())

	assert.Equal(t, `{"v":1}`, c.Get(context.Background()))

	remote.err = errors.New("connection refused")
	time.Sleep(time.Millisecond)
	assert.Equal(t, `{"v":1}`, c.Get(context.Background()))
}
