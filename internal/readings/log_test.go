package readings

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecord(t *testing.T) {
	t.Parallel()

	t.Run("assigns an id when unset", func(t *testing.T) {
		l := NewLog(4)
		stored := l.Record(Reading{TakenAt: time.Now(), Watts: 500})
		assert.NotEqual(t, uuid.Nil, stored.ID)
	})

	t.Run("keeps a caller-provided id", func(t *testing.T) {
		l := NewLog(4)
		id := uuid.New()
		stored := l.Record(Reading{ID: id, Watts: 500})
		assert.Equal(t, id, stored.ID)
	})

	t.Run("latest tracks the newest reading", func(t *testing.T) {
		l := NewLog(4)
		_, ok := l.Latest()
		assert.False(t, ok)

		l.Record(Reading{Watts: 100})
		l.Record(Reading{Watts: 200})
		latest, ok := l.Latest()
		require.True(t, ok)
		assert.Equal(t, int32(200), latest.Watts)
	})
}

func TestLogRingDropsOldest(t *testing.T) {
	t.Parallel()

	l := NewLog(3)
	for w := int32(1); w <= 5; w++ {
		l.Record(Reading{Watts: w})
	}

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 5, l.Total())

	recent := l.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, int32(5), recent[0].Watts)
	assert.Equal(t, int32(4), recent[1].Watts)
	assert.Equal(t, int32(3), recent[2].Watts)
}

func TestLogRecent(t *testing.T) {
	t.Parallel()

	l := NewLog(8)
	assert.Nil(t, l.Recent(3))

	l.Record(Reading{Watts: 1})
	l.Record(Reading{Watts: 2})

	recent := l.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, int32(2), recent[0].Watts)
	assert.Nil(t, l.Recent(0))
}

func TestLogConcurrentAccess(t *testing.T) {
	t.Parallel()

	l := NewLog(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(w int32) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Record(Reading{Watts: w})
				l.Latest()
				l.Recent(4)
			}
		}(int32(i))
	}
	wg.Wait()

	assert.Equal(t, 16, l.Len())
	assert.Equal(t, 400, l.Total())
}
