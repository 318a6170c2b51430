package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const otherTopic = "other"

func TestNotifier_SubscribeUnsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe(TopicTemplates)
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Listeners(TopicTemplates))
	assert.Equal(t, 0, n.Listeners(otherTopic))

	n.Unsubscribe(TopicTemplates, ch)
	assert.Equal(t, 0, n.Listeners(TopicTemplates))

	_, open := <-ch
	assert.False(t, open, "channel should be closed")

	// second unsubscribe is a no-op
	n.Unsubscribe(TopicTemplates, ch)
}

func TestNotifier_BroadcastByTopic(t *testing.T) {
	n := New()

	tmpl1 := n.Subscribe(TopicTemplates)
	tmpl2 := n.Subscribe(TopicTemplates)
	other := n.Subscribe(otherTopic)
	defer n.Unsubscribe(TopicTemplates, tmpl1)
	defer n.Unsubscribe(TopicTemplates, tmpl2)
	defer n.Unsubscribe(otherTopic, other)

	n.Broadcast(TopicTemplates)

	for i, ch := range []chan struct{}{tmpl1, tmpl2} {
		select {
		case <-ch:
		case <-time.After(100 * time.Millisecond):
			t.Errorf("listener %d did not receive broadcast", i)
		}
	}

	select {
	case <-other:
		t.Error("other listener received a templates ping")
	default:
	}
}

func TestNotifier_BroadcastNonBlocking(t *testing.T) {
	n := New()

	ch := n.Subscribe(otherTopic)
	defer n.Unsubscribe(otherTopic, ch)

	ch <- struct{}{}

	done := make(chan struct{})
	go func() {
		n.Broadcast(otherTopic)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Broadcast blocked on full channel")
	}
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := n.Subscribe(TopicTemplates)
			n.Broadcast(TopicTemplates)
			n.Unsubscribe(TopicTemplates, ch)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, n.Listeners(TopicTemplates))
}
