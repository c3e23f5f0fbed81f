package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()

	svc, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Shutdown() })

	return svc
}

func TestSetAndGet(t *testing.T) {
	svc := newService(t)

	svc.Set("GET /mercury/overview", json.RawMessage(`{"a":1}`), time.Minute)

	value, ok := svc.Get("GET /mercury/overview")
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(value))
}

func TestExpiredEntryIsEvictedOnGet(t *testing.T) {
	svc := newService(t)

	svc.Set("key", json.RawMessage(`1`), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := svc.Get("key")
	assert.False(t, ok)
	assert.Zero(t, svc.Len())
}

func TestZeroTTLIsNotStored(t *testing.T) {
	svc := newService(t)

	svc.Set("key", json.RawMessage(`1`), 0)

	_, ok := svc.Get("key")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	svc := newService(t)

	svc.Set("key", json.RawMessage(`1`), time.Minute)
	svc.Invalidate("key")

	_, ok := svc.Get("key")
	assert.False(t, ok)
}
