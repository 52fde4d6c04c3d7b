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
	"time"

	"github.com/cenkalti/backoff"
	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/binkynet/AnalogWorker/pkg/config"
	"github.com/binkynet/AnalogWorker/pkg/service/acquisition"
)

const (
	publishTimeout = time.Second * 5
	disconnectWait = 250
)

var (
	// ConnectTimeoutError is returned when the broker did not accept the
	// connection in time.
	ConnectTimeoutError = errors.New("mqtt connect timeout")
)

// Service contains the API exposed by the publisher
type Service interface {
	// Run the publisher until the given context is cancelled.
	Run(ctx context.Context) error
}

// EventSource provides the events to publish.
type EventSource interface {
	SubscribeBatches(cb func(acquisition.Batch)) context.CancelFunc
	SubscribeLimits(cb func(acquisition.LimitEvent)) context.CancelFunc
}

// Client is the part of the MQTT client used by the publisher.
type Client interface {
	Connect() mqttapi.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqttapi.Token
	Disconnect(quiesce uint)
}

type Config struct {
	ModuleID string
	MQTT     config.MQTT
}

type Dependencies struct {
	Log    zerolog.Logger
	Source EventSource
	// NewClient builds the MQTT client.
	// If nil, a paho client is used.
	NewClient func(opts *mqttapi.ClientOptions) Client
}

// NewService instantiates a new publisher.
func NewService(cfg Config, deps Dependencies) (Service, error) {
	if deps.Source == nil {
		return nil, errors.New("source is required")
	}
	if deps.NewClient == nil {
		deps.NewClient = func(opts *mqttapi.ClientOptions) Client {
			return mqttapi.NewClient(opts)
		}
	}
	queueSize := cfg.MQTT.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}
	maxInFlight := cfg.MQTT.MaxInFlight
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &service{
		log:      deps.Log.With().Str("component", "publisher").Logger(),
		config:   cfg,
		deps:     deps,
		queue:    newQueue(queueSize),
		inFlight: semaphore.NewWeighted(maxInFlight),
	}, nil
}

type service struct {
	log      zerolog.Logger
	config   Config
	deps     Dependencies
	queue    *queue
	inFlight *semaphore.Weighted
}

// DoneMessage is the payload published for every completed batch.
type DoneMessage struct {
	ModuleID string    `json:"module_id"`
	Sequence uint64    `json:"sequence"`
	Time     time.Time `json:"time"`
	Channels []int     `json:"channels"`
	Samples  []int16   `json:"samples"`
}

// LimitMessage is the payload published for every limit event.
type LimitMessage struct {
	ModuleID string    `json:"module_id"`
	Sequence uint64    `json:"sequence"`
	Time     time.Time `json:"time"`
	Channel  int       `json:"channel"`
	Limit    string    `json:"limit"`
}

// DoneTopic returns the topic of batch messages.
func (s *service) DoneTopic() string {
	return s.config.MQTT.TopicPrefix + "done"
}

// LimitTopic returns the topic of limit messages.
func (s *service) LimitTopic() string {
	return s.config.MQTT.TopicPrefix + "limit"
}

// Run the publisher until the given context is cancelled.
func (s *service) Run(ctx context.Context) error {
	leaveBatches := s.deps.Source.SubscribeBatches(s.onBatch)
	defer leaveBatches()
	leaveLimits := s.deps.Source.SubscribeLimits(s.onLimit)
	defer leaveLimits()

	if s.config.MQTT.Address == "" {
		s.log.Info().Msg("No MQTT broker configured, logging events only")
		s.runLogOnly(ctx)
		return nil
	}

	client, err := s.connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer client.Disconnect(disconnectWait)
	connectedGauge.Set(1)
	defer connectedGauge.Set(0)

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-s.queue.c:
			if err := s.inFlight.Acquire(ctx, 1); err != nil {
				return nil
			}
			token := client.Publish(m.topic, 0, false, m.payload)
			go s.await(token, m)
		}
	}
}

// await waits for the acknowledgment of a publish and releases its
// in-flight slot.
func (s *service) await(token mqttapi.Token, m message) {
	defer s.inFlight.Release(1)
	if !token.WaitTimeout(publishTimeout) {
		publishErrorsTotal.WithLabelValues("timeout").Inc()
		s.log.Warn().Str("topic", m.topic).Msg("Publish not acknowledged in time")
		return
	}
	if err := token.Error(); err != nil {
		publishErrorsTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("topic", m.topic).Msg("Publish failed")
		return
	}
	publishedTotal.WithLabelValues(m.kind).Inc()
}

// connect builds the client and connects it, retrying with exponential
// backoff until it succeeds or the context is cancelled.
func (s *service) connect(ctx context.Context) (Client, error) {
	opts := mqttapi.NewClientOptions().
		AddBroker(s.config.MQTT.Address).
		SetClientID(s.config.MQTT.ClientID).
		SetUsername(s.config.MQTT.Username).
		SetPassword(s.config.MQTT.Password)
	opts.SetKeepAlive(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	client := s.deps.NewClient(opts)

	op := func() error {
		token := client.Connect()
		if timeout := s.config.MQTT.ConnectTimeout; timeout <= 0 {
			token.Wait()
		} else if !token.WaitTimeout(timeout) {
			return errors.Wrapf(ConnectTimeoutError, "broker %s", s.config.MQTT.Address)
		}
		return token.Error()
	}
	notify := func(err error, delay time.Duration) {
		connectRetriesTotal.Inc()
		s.log.Warn().Err(err).Dur("retry-in", delay).Msg("Failed to connect to MQTT broker")
	}
	b := backoff.WithContext(&backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0.2,
		Multiplier:          2.,
		MaxInterval:         30 * time.Second,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock}, ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, errors.Wrap(err, "failed to connect to mqtt")
	}
	s.log.Info().Str("address", s.config.MQTT.Address).Msg("Connected to MQTT broker")
	return client, nil
}

// runLogOnly drains the queue into the debug log.
func (s *service) runLogOnly(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-s.queue.c:
			s.log.Debug().
				Str("topic", m.topic).
				Int("size", len(m.payload)).
				Msg("Event")
		}
	}
}

func (s *service) onBatch(b acquisition.Batch) {
	msg := DoneMessage{
		ModuleID: s.config.ModuleID,
		Sequence: b.Sequence,
		Time:     b.Time,
		Channels: make([]int, len(b.Channels)),
		Samples:  make([]int16, len(b.Samples)),
	}
	for i, ch := range b.Channels {
		msg.Channels[i] = int(ch)
	}
	for i, v := range b.Samples {
		msg.Samples[i] = int16(v)
	}
	s.enqueue(s.DoneTopic(), "done", msg)
}

func (s *service) onLimit(e acquisition.LimitEvent) {
	s.enqueue(s.LimitTopic(), "limit", LimitMessage{
		ModuleID: s.config.ModuleID,
		Sequence: e.Sequence,
		Time:     e.Time,
		Channel:  int(e.Channel),
		Limit:    e.Limit.String(),
	})
}

func (s *service) enqueue(topic, kind string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Str("topic", topic).Msg("Failed to encode message")
		return
	}
	if s.queue.push(message{topic: topic, kind: kind, payload: payload}) {
		droppedTotal.Inc()
	}
}
