package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	driftio "github.com/hed1ad/driftwatch/pkg/io"
)

func TestHubSubscribePublish(t *testing.T) {
	h := NewHub(8)

	a := h.Subscribe()
	b := h.Subscribe()
	assert.Equal(t, 2, h.Len())
	assert.NotEqual(t, a.ID, b.ID)

	h.Publish(driftio.Result{Timestamp: 1, Value: 10})

	ra := <-a.C()
	rb := <-b.C()
	assert.Equal(t, int64(1), ra.Timestamp)
	assert.Equal(t, ra, rb)
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub(8)

	sub := h.Subscribe()
	h.Unsubscribe(sub.ID)
	assert.Equal(t, 0, h.Len())

	_, open := <-sub.C()
	assert.False(t, open, "unsubscribed channel must be closed")

	// Publishing after unsubscribe must not panic.
	h.Publish(driftio.Result{Timestamp: 2})
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub(1)

	sub := h.Subscribe()
	h.Publish(driftio.Result{Timestamp: 1})
	h.Publish(driftio.Result{Timestamp: 2})
	h.Publish(driftio.Result{Timestamp: 3})

	// Only the first result fit; the rest were dropped, not blocked on.
	r := <-sub.C()
	require.Equal(t, int64(1), r.Timestamp)
	assert.Empty(t, sub.ch)
}

func TestHubDoubleClose(t *testing.T) {
	h := NewHub(1)
	sub := h.Subscribe()
	sub.Close()
	sub.Close()
	h.Unsubscribe(sub.ID)
}
