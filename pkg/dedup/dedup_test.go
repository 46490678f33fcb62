package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeenWithinWindow(t *testing.T) {
	d := New(time.Minute, 16)

	assert.False(t, d.Seen([]byte(`{"zone_id":1}`)))
	assert.True(t, d.Seen([]byte(`{"zone_id":1}`)))
	assert.False(t, d.Seen([]byte(`{"zone_id":2}`)))
}

func TestSeenExpires(t *testing.T) {
	d := New(10*time.Millisecond, 16)

	assert.False(t, d.Seen([]byte("payload")))
	time.Sleep(25 * time.Millisecond)
	assert.False(t, d.Seen([]byte("payload")), "expired entries are processed again")
}
