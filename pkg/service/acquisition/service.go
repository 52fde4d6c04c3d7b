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

// Package acquisition runs the analog converter driver on a single worker
// goroutine. The converter interrupt is delivered on that goroutine, so
// the driver is never accessed concurrently.
package acquisition

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mattn/go-pubsub"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/binkynet/AnalogWorker/pkg/bridge"
	"github.com/binkynet/AnalogWorker/pkg/config"
	"github.com/binkynet/AnalogWorker/pkg/saadc"
)

var (
	// ServiceStoppedError is returned for commands sent when the
	// worker goroutine is not running.
	ServiceStoppedError = errors.New("acquisition service not running")
)

// Service contains the API exposed by the acquisition service
type Service interface {
	// Run the service until the given context is cancelled.
	Run(ctx context.Context) error

	// Start continuous acquisition.
	Start(ctx context.Context) error
	// Stop continuous acquisition.
	Stop(ctx context.Context) error
	// SampleConvert performs a single conversion on the given channel.
	// Fails with saadc.BusyError while acquisition is running.
	SampleConvert(ctx context.Context, channel uint8) (saadc.Value, error)
	// Status returns a snapshot of the service and driver state.
	Status(ctx context.Context) (Status, error)

	// SubscribeBatches registers a callback for every completed batch.
	SubscribeBatches(cb func(Batch)) context.CancelFunc
	// SubscribeLimits registers a callback for every limit event.
	SubscribeLimits(cb func(LimitEvent)) context.CancelFunc
}

// Config of the acquisition service.
type Config struct {
	Converter   config.Converter
	Channels    []config.Channel
	Acquisition config.Acquisition
}

type Dependencies struct {
	Log       zerolog.Logger
	Converter bridge.Converter
}

// NewService instantiates a new Service.
func NewService(cfg Config, deps Dependencies) (Service, error) {
	if deps.Converter == nil {
		return nil, errors.Wrap(saadc.InvalidParamError, "converter is required")
	}
	if cfg.Acquisition.BufferSize < 1 || cfg.Acquisition.BufferSize > saadc.MaxBufferSize {
		return nil, errors.Wrapf(saadc.InvalidParamError, "buffer size %d", cfg.Acquisition.BufferSize)
	}
	queueSize := cfg.Acquisition.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}
	log := deps.Log.With().Str("component", "acquisition").Logger()
	s := &service{
		log:      log,
		config:   cfg,
		driver:   saadc.New(deps.Converter, deps.Log),
		commands: make(chan command),
		queue:    make(chan interface{}, queueSize),
		runDone:  make(chan struct{}),
		batches:  pubsub.New(),
		limits:   pubsub.New(),
	}
	if cfg.Acquisition.SampleRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Acquisition.SampleRate), 1)
	} else {
		s.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	deps.Converter.SetInterruptHandler(s.driver.HandleInterrupt)
	return s, nil
}

type service struct {
	log    zerolog.Logger
	config Config
	driver *saadc.Driver

	commands chan command
	queue    chan interface{}
	runDone  chan struct{}
	limiter  *rate.Limiter
	batches  *pubsub.PubSub
	limits   *pubsub.PubSub

	// Owned by the worker goroutine
	running   bool
	buffers   [2][]saadc.Value
	scanOrder []uint8
	sampleAt  *time.Timer

	sequence      uint64
	limitSequence uint64
	counters      counters
}

// counters are read by the throughput logger.
type counters struct {
	batches atomic.Uint64
	samples atomic.Uint64
	limits  atomic.Uint64
	dropped atomic.Uint64
}

// command is a function executed on the worker goroutine.
type command struct {
	fn   func()
	done chan struct{}
}

// Run the service until the given context is cancelled.
func (s *service) Run(ctx context.Context) error {
	defer close(s.runDone)

	if err := s.initIdle(); err != nil {
		return errors.Wrap(err, "failed to initialize converter")
	}
	defer func() {
		if err := s.driver.Uninit(); err != nil {
			s.log.Warn().Err(err).Msg("Uninit failed")
		}
		runningGauge.Set(0)
	}()
	if s.config.Acquisition.Autostart {
		if err := s.start(); err != nil {
			return errors.Wrap(err, "failed to start acquisition")
		}
	}

	g, lctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.runFanOut(lctx)
		return nil
	})
	g.Go(func() error {
		s.runThroughputLog(lctx)
		return nil
	})
	g.Go(func() error {
		return s.runWorker(lctx)
	})
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "Wait failed")
	}
	return nil
}

// runWorker executes commands and paces samples until the context is
// cancelled.
func (s *service) runWorker(ctx context.Context) error {
	s.sampleAt = time.NewTimer(time.Hour)
	s.sampleAt.Stop()
	defer s.sampleAt.Stop()
	armed := false
	for {
		if s.running && !armed {
			s.sampleAt.Reset(s.limiter.Reserve().Delay())
			armed = true
		}
		select {
		case <-ctx.Done():
			if s.running {
				if err := s.stop(); err != nil {
					s.log.Warn().Err(err).Msg("Stop failed")
				}
			}
			return nil
		case cmd := <-s.commands:
			cmd.fn()
			close(cmd.done)
			if !s.running && armed {
				if !s.sampleAt.Stop() {
					<-s.sampleAt.C
				}
				armed = false
			}
		case <-s.sampleAt.C:
			armed = false
			s.sample()
		}
	}
}

// do runs the given function on the worker goroutine.
func (s *service) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case s.commands <- cmd:
	case <-s.runDone:
		return ServiceStoppedError
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start continuous acquisition.
func (s *service) Start(ctx context.Context) error {
	var result error
	if err := s.do(ctx, func() { result = s.start() }); err != nil {
		return err
	}
	return result
}

// Stop continuous acquisition.
func (s *service) Stop(ctx context.Context) error {
	var result error
	if err := s.do(ctx, func() {
		if !s.running {
			result = errors.Wrap(saadc.InvalidStateError, "acquisition not running")
			return
		}
		result = s.stop()
	}); err != nil {
		return err
	}
	return result
}

// SampleConvert performs a single conversion on the given channel.
func (s *service) SampleConvert(ctx context.Context, channel uint8) (saadc.Value, error) {
	var value saadc.Value
	var result error
	if err := s.do(ctx, func() {
		if s.running {
			result = errors.Wrap(saadc.BusyError, "acquisition running")
			return
		}
		value, result = s.driver.SampleConvert(channel)
	}); err != nil {
		return 0, err
	}
	return value, result
}

// Status returns a snapshot of the service and driver state.
func (s *service) Status(ctx context.Context) (Status, error) {
	var result Status
	if err := s.do(ctx, func() { result = s.status() }); err != nil {
		return Status{}, err
	}
	return result, nil
}

// SubscribeBatches registers a callback for every completed batch.
func (s *service) SubscribeBatches(cb func(Batch)) context.CancelFunc {
	s.batches.Sub(cb)
	return func() {
		s.batches.Leave(cb)
	}
}

// SubscribeLimits registers a callback for every limit event.
func (s *service) SubscribeLimits(cb func(LimitEvent)) context.CancelFunc {
	s.limits.Sub(cb)
	return func() {
		s.limits.Leave(cb)
	}
}
