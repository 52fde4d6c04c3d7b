// Copyright 2026 Ewout Prangsma
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
//
// Author Ewout Prangsma
//

package publisher

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/AnalogWorker/pkg/config"
	"github.com/binkynet/AnalogWorker/pkg/saadc"
	"github.com/binkynet/AnalogWorker/pkg/service/acquisition"
)

const testTimeout = time.Second * 5

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mutex         sync.Mutex
	failures      int
	connects      int
	disconnected  bool
	published     chan published
	requestedOpts *mqttapi.ClientOptions
}

func newFakeClient(failures int) *fakeClient {
	return &fakeClient{failures: failures, published: make(chan published, 16)}
}

func (c *fakeClient) Connect() mqttapi.Token {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.connects++
	if c.connects <= c.failures {
		return &fakeToken{err: errors.New("connection refused")}
	}
	return &fakeToken{}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqttapi.Token {
	c.published <- published{topic: topic, payload: payload.([]byte)}
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.disconnected = true
}

func (c *fakeClient) Connects() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connects
}

type fakeSource struct {
	mutex sync.Mutex
	batch func(acquisition.Batch)
	limit func(acquisition.LimitEvent)
	ready chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{ready: make(chan struct{})}
}

func (s *fakeSource) SubscribeBatches(cb func(acquisition.Batch)) context.CancelFunc {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.batch = cb
	return func() {}
}

func (s *fakeSource) SubscribeLimits(cb func(acquisition.LimitEvent)) context.CancelFunc {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.limit = cb
	close(s.ready)
	return func() {}
}

func (s *fakeSource) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.ready:
	case <-time.After(testTimeout):
		t.Fatal("Publisher did not subscribe in time")
	}
}

func testConfig(address string) Config {
	mqtt := config.Default().MQTT
	mqtt.Address = address
	return Config{ModuleID: "test-module", MQTT: mqtt}
}

// runPublisher runs a publisher with given client and returns a function
// that cancels it and waits for Run to return.
func runPublisher(t *testing.T, cfg Config, src *fakeSource, client *fakeClient) func() {
	t.Helper()
	svc, err := NewService(cfg, Dependencies{
		Log:    zerolog.Nop(),
		Source: src,
		NewClient: func(opts *mqttapi.ClientOptions) Client {
			client.requestedOpts = opts
			return client
		},
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- svc.Run(ctx)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-runErr:
				if err != nil {
					t.Errorf("Run failed: %v", err)
				}
			case <-time.After(testTimeout):
				t.Error("Run did not return in time")
			}
		})
	}
}

func waitPublished(t *testing.T, client *fakeClient) published {
	t.Helper()
	select {
	case p := <-client.published:
		return p
	case <-time.After(testTimeout):
		t.Fatal("Nothing published in time")
	}
	return published{}
}

func TestQueueDropsOldest(t *testing.T) {
	q := newQueue(2)
	for i, topic := range []string{"a", "b", "c"} {
		dropped := q.push(message{topic: topic})
		if dropped != (i == 2) {
			t.Errorf("Push %s: unexpected dropped=%v", topic, dropped)
		}
	}
	for _, expected := range []string{"b", "c"} {
		if m := <-q.c; m.topic != expected {
			t.Errorf("Expected %s, got %s", expected, m.topic)
		}
	}
}

func TestNewServiceRequiresSource(t *testing.T) {
	if _, err := NewService(testConfig(""), Dependencies{Log: zerolog.Nop()}); err == nil {
		t.Error("Expected error without source")
	}
}

func TestPublish(t *testing.T) {
	src := newFakeSource()
	client := newFakeClient(0)
	stop := runPublisher(t, testConfig("tcp://broker:1883"), src, client)
	defer stop()
	src.wait(t)

	src.batch(acquisition.Batch{
		Sequence: 7,
		Time:     time.Now(),
		Channels: []uint8{1, 3},
		Samples:  []saadc.Value{256, 768},
	})
	p := waitPublished(t, client)
	if p.topic != "binky/analog/done" {
		t.Errorf("Unexpected topic '%s'", p.topic)
	}
	var done DoneMessage
	if err := json.Unmarshal(p.payload, &done); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if done.ModuleID != "test-module" || done.Sequence != 7 {
		t.Errorf("Unexpected message %+v", done)
	}
	if len(done.Channels) != 2 || done.Channels[1] != 3 || len(done.Samples) != 2 || done.Samples[1] != 768 {
		t.Errorf("Unexpected channels/samples in %+v", done)
	}

	src.limit(acquisition.LimitEvent{Sequence: 2, Channel: 5, Limit: saadc.LimitLow})
	p = waitPublished(t, client)
	if p.topic != "binky/analog/limit" {
		t.Errorf("Unexpected topic '%s'", p.topic)
	}
	var limit LimitMessage
	if err := json.Unmarshal(p.payload, &limit); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if limit.Channel != 5 || limit.Limit != "low" || limit.Sequence != 2 {
		t.Errorf("Unexpected message %+v", limit)
	}

	stop()
	client.mutex.Lock()
	defer client.mutex.Unlock()
	if !client.disconnected {
		t.Error("Expected client disconnected")
	}
	if servers := client.requestedOpts.Servers; len(servers) != 1 || servers[0].Host != "broker:1883" {
		t.Errorf("Unexpected broker %v", servers)
	}
}

func TestConnectRetry(t *testing.T) {
	src := newFakeSource()
	client := newFakeClient(2)
	stop := runPublisher(t, testConfig("tcp://broker:1883"), src, client)
	defer stop()
	src.wait(t)

	src.limit(acquisition.LimitEvent{Sequence: 1})
	waitPublished(t, client)
	if n := client.Connects(); n != 3 {
		t.Errorf("Expected 3 connection attempts, got %d", n)
	}
}

func TestCancelWhileConnecting(t *testing.T) {
	src := newFakeSource()
	client := newFakeClient(1000)
	stop := runPublisher(t, testConfig("tcp://broker:1883"), src, client)
	src.wait(t)
	time.Sleep(time.Millisecond * 50)
	stop()
}

func TestLogOnly(t *testing.T) {
	src := newFakeSource()
	client := newFakeClient(0)
	cfg := testConfig("")
	svc, err := NewService(cfg, Dependencies{Log: zerolog.Nop(), Source: src})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)
	src.wait(t)

	src.batch(acquisition.Batch{Sequence: 1, Samples: []saadc.Value{1}})
	q := svc.(*service).queue
	deadline := time.Now().Add(testTimeout)
	for len(q.c) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("Queue not drained")
		}
		time.Sleep(time.Millisecond * 10)
	}
	if client.Connects() != 0 {
		t.Error("Expected no MQTT connection")
	}
}
