// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/uprightd/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestTopicFanOut(t *testing.T) {
	topic := NewTopic[int]("fanout-test")
	defer topic.Close()

	a := topic.Subscribe()
	b := topic.Subscribe()

	topic.Publish(1)
	topic.Publish(2)
	topic.Publish(3)

	for _, sub := range []*Subscription[int]{a, b} {
		for want := 1; want <= 3; want++ {
			select {
			case got := <-sub.C():
				assert.Equal(t, want, got, "per-subscriber order must match publish order")
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for event")
			}
		}
	}
}

func TestLateSubscriberSeesNoReplay(t *testing.T) {
	topic := NewTopic[string]("replay-test")
	defer topic.Close()

	topic.Publish("before")

	sub := topic.Subscribe()
	defer sub.Close()

	topic.Publish("after")

	select {
	case got := <-sub.C():
		assert.Equal(t, "after", got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	select {
	case got := <-sub.C():
		t.Fatalf("unexpected extra event %q", got)
	default:
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	topic := NewTopic[int]("drop-test")
	defer topic.Close()

	sub := topic.SubscribeBuffer(1)
	defer sub.Close()

	before := getCounterValue(t, metrics.BusDropsTotal.WithLabelValues("drop-test"))

	topic.Publish(1)
	topic.Publish(2)
	topic.Publish(3)

	after := getCounterValue(t, metrics.BusDropsTotal.WithLabelValues("drop-test"))
	assert.Equal(t, before+2, after, "two events should have been dropped")

	got := <-sub.C()
	assert.Equal(t, 1, got, "the buffered event survives")
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	topic := NewTopic[int]("close-test")
	sub := topic.Subscribe()

	sub.Close()
	sub.Close()
	topic.Close()
	topic.Close()

	_, ok := <-sub.C()
	assert.False(t, ok, "channel must be closed")
}

func TestTopicCloseClosesSubscribers(t *testing.T) {
	topic := NewTopic[int]("topic-close-test")
	a := topic.Subscribe()
	b := topic.Subscribe()

	topic.Close()

	for _, sub := range []*Subscription[int]{a, b} {
		_, ok := <-sub.C()
		assert.False(t, ok)
	}

	// Publishing after close is a silent no-op.
	topic.Publish(99)

	// Subscribing after close yields an already-closed subscription.
	late := topic.Subscribe()
	_, ok := <-late.C()
	assert.False(t, ok)
	assert.Equal(t, 0, topic.Subscribers())
}

func TestConcurrentPublishSubscribeClose(t *testing.T) {
	topic := NewTopic[int]("race-test")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				topic.Publish(j)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				sub := topic.SubscribeBuffer(4)
				select {
				case <-sub.C():
				default:
				}
				sub.Close()
			}
		}()
	}

	wg.Wait()
	topic.Close()
	assert.Equal(t, 0, topic.Subscribers())
}
