package turn

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupSetMarksWithinTTL(t *testing.T) {
	d := newDedupSet(time.Minute, 10)
	now := time.Now()

	assert.True(t, d.markSeen("a", now))
	assert.False(t, d.markSeen("a", now.Add(30*time.Second)), "same id inside TTL")
	assert.True(t, d.markSeen("a", now.Add(2*time.Minute)), "expired id is new again")
}

func TestDedupSetCapacityEvictsOldest(t *testing.T) {
	d := newDedupSet(time.Hour, 5)
	now := time.Now()

	for i := 0; i < 8; i++ {
		assert.True(t, d.markSeen(fmt.Sprintf("id-%d", i), now.Add(time.Duration(i)*time.Second)))
	}
	assert.LessOrEqual(t, d.size(), 5, "set stays bounded")
	// the oldest ids were evicted and read as new
	assert.True(t, d.markSeen("id-0", now.Add(time.Minute)))
	// the newest survivors still dedup
	assert.False(t, d.markSeen("id-7", now.Add(time.Minute)))
}

func TestDedupSetSweepDropsExpired(t *testing.T) {
	d := newDedupSet(time.Minute, 3)
	now := time.Now()

	d.markSeen("x", now)
	d.markSeen("y", now)
	d.markSeen("z", now)
	// inserting past capacity sweeps the expired entries first
	assert.True(t, d.markSeen("w", now.Add(2*time.Minute)))
	assert.LessOrEqual(t, d.size(), 3)
	assert.True(t, d.markSeen("x", now.Add(2*time.Minute)), "expired entry was swept")
}