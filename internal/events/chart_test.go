package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_PublishSubscribe(t *testing.T) {
	b := NewBroadcaster(4)
	first := b.Subscribe()
	second := b.Subscribe()
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, b.Len())

	b.Publish(ChartEvent{Seq: 1, Kind: KindUpdate, Payload: json.RawMessage(`{}`)})

	for _, sub := range []*Subscription{first, second} {
		select {
		case e := <-sub.C:
			assert.Equal(t, uint64(1), e.Seq)
			assert.Equal(t, KindUpdate, e.Kind)
		default:
			t.Fatal("event not delivered")
		}
	}
}

func TestBroadcaster_DropsForSlowConsumer(t *testing.T) {
	b := NewBroadcaster(1)
	sub := b.Subscribe()

	b.Publish(ChartEvent{Seq: 1})
	b.Publish(ChartEvent{Seq: 2})

	e := <-sub.C
	assert.Equal(t, uint64(1), e.Seq)
	select {
	case <-sub.C:
		t.Fatal("second event should have been dropped")
	default:
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster(0)
	sub := b.Subscribe()

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)

	_, ok := <-sub.C
	require.False(t, ok, "channel closed")
	assert.Equal(t, 0, b.Len())

	b.Publish(ChartEvent{Seq: 1})
}
