package logs

import (
	"context"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewEntry_Format(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 891_000_000, time.FixedZone("x", 3600))
	e := NewEntry(log.WarnLevel, "careful", at)

	assert.Equal(t, "warning", e.Level)
	assert.Equal(t, "careful", e.Message)
	assert.Equal(t, "2025-03-04T04:06:07.891Z", e.Timestamp)
}

func TestCollector_EntriesIsACopy(t *testing.T) {
	c := NewCollector()
	c.Add(log.InfoLevel, "one")

	got := c.Entries()
	got[0].Message = "changed"
	c.Add(log.InfoLevel, "two")

	entries := c.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Message)
	assert.Len(t, got, 1)
}

func TestCollector_ConcurrentAdd(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(log.DebugLevel, "x")
		}()
	}
	wg.Wait()
	assert.Len(t, c.Entries(), 50)
}

func TestContext_RoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	c := NewCollector()
	ctx := NewContext(context.Background(), c)
	assert.Same(t, c, FromContext(ctx))
}

func TestBuffer_PublishAndReset(t *testing.T) {
	var b Buffer
	assert.NotNil(t, b.Get())
	assert.Empty(t, b.Get())

	first := NewCollector()
	first.Add(log.InfoLevel, "first")
	b.Publish(first)
	assert.Equal(t, "first", b.Get()[0].Message)

	second := NewCollector()
	b.Publish(second)
	assert.Empty(t, b.Get())

	// entries added after publishing are visible
	second.Add(log.InfoLevel, "late")
	assert.Len(t, b.Get(), 1)

	c := b.Reset()
	assert.Empty(t, b.Get())
	c.Add(log.InfoLevel, "after reset")
	assert.Len(t, b.Get(), 1)
}
