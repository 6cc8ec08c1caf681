// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/superdao/event"
	"github.com/blinklabs-io/superdao/internal/test/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventBusSingleSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.event"
	testEvtData := "foo"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, testEvtData))
	evt := testutil.RequireReceive(t, subCh, time.Second, "event")
	assert.Equal(t, testEvtType, evt.Type)
	assert.Equal(t, testEvtData, evt.Data)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	_, otherCh := eb.Subscribe("test.other")
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	for _, ch := range []<-chan event.Event{sub1Ch, sub2Ch} {
		evt := testutil.RequireReceive(t, ch, time.Second, "event")
		assert.Equal(t, 1, evt.Data)
	}
	testutil.RequireNoReceive(
		t,
		otherCh,
		10*time.Millisecond,
		"subscriber received event of another type",
	)
}

func TestEventBusUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "foo"))
	_, ok := <-subCh
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestSubscribeFuncPanicRecovery(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.panic"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	var received atomic.Int32
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		if received.Add(1) == 1 {
			panic("intentional test panic")
		}
	})
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "panic"))
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "after-panic"))
	require.Eventually(t, func() bool {
		return received.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPublishDoesNotBlockOnFullQueue(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.full"
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	done := make(chan struct{})
	go func() {
		for i := range event.EventQueueSize + 10 {
			eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on full subscriber queue")
	}
	assert.Len(t, subCh, event.EventQueueSize)
	count, err := promtestutil.GatherAndCount(reg, "superdao_event_delivery_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStopClosesSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.stop"
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(testEvtType)
	called := make(chan struct{}, 1)
	eb.SubscribeFunc(testEvtType, func(event.Event) { called <- struct{}{} })
	eb.Stop()
	_, ok := <-subCh
	assert.False(t, ok)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "after"))
	testutil.RequireNoReceive(t, called, 50*time.Millisecond, "handler called after Stop")
	// The bus is reusable after Stop
	_, newCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "new"))
	evt := <-newCh
	assert.Equal(t, "new", evt.Data)
	eb.Stop()
}
