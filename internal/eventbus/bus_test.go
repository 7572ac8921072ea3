package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New()
	id1, ch1 := b.Subscribe(4)
	_, ch2 := b.Subscribe(4)

	b.PublishNew(EventTaskCreated, "1", map[string]string{"title": "Buy milk"})

	for _, ch := range []<-chan *Event{ch1, ch2} {
		ev := <-ch
		require.NotNil(t, ev)
		assert.Equal(t, EventTaskCreated, ev.Type)
		assert.Equal(t, "1", ev.ResourceID)
		assert.NotEmpty(t, ev.ID)
	}

	b.Unsubscribe(id1)
	_, ok := <-ch1
	assert.False(t, ok)
	b.Unsubscribe(id1)
}

func TestBus_PublishDropsWhenFull(t *testing.T) {
	b := New()
	_, ch := b.Subscribe(1)

	b.PublishNew(EventNoteCreated, "1", nil)
	b.PublishNew(EventNoteCreated, "2", nil)

	ev := <-ch
	assert.Equal(t, "1", ev.ResourceID)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestBus_Close(t *testing.T) {
	b := New()
	_, ch := b.Subscribe(1)
	b.Close()
	_, ok := <-ch
	assert.False(t, ok)
}
