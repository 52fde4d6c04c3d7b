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

package acquisition

import (
	"time"

	"github.com/pkg/errors"

	"github.com/binkynet/AnalogWorker/pkg/saadc"
)

// initIdle initializes the driver and sets up all configured channels.
func (s *service) initIdle() error {
	if err := s.driver.Init(s.config.Converter.DriverConfig(), s.onEvent); err != nil {
		return errors.Wrap(err, "Init failed")
	}
	for _, ch := range s.config.Channels {
		cfg, err := ch.ChannelConfig()
		if err != nil {
			return err
		}
		if err := s.driver.ChannelInit(ch.Index, cfg); err != nil {
			return errors.Wrapf(err, "failed to set up channel %d", ch.Index)
		}
	}
	var order []uint8
	for i := uint8(0); i < saadc.ChannelCount; i++ {
		if info, _ := s.driver.Channel(i); info.Active() {
			order = append(order, i)
		}
	}
	s.scanOrder = order
	return nil
}

// start queues a primary and a secondary buffer.
func (s *service) start() error {
	if s.running {
		return errors.Wrap(saadc.BusyError, "acquisition already running")
	}
	size := s.config.Acquisition.BufferSize
	for i := range s.buffers {
		s.buffers[i] = make([]saadc.Value, size)
	}
	for _, buf := range s.buffers {
		if err := s.driver.StartBufferConvert(buf); err != nil {
			if s.driver.Busy() {
				s.running = true
				if err := s.stop(); err != nil {
					s.log.Warn().Err(err).Msg("Failed to stop after failed start")
				}
			}
			return errors.Wrap(err, "StartBufferConvert failed")
		}
	}
	s.running = true
	runningGauge.Set(1)
	s.log.Info().
		Int("buffer-size", size).
		Uints8("channels", s.scanOrder).
		Float64("sample-rate", s.config.Acquisition.SampleRate).
		Msg("Acquisition started")
	return nil
}

// stop tears the driver down and initializes it idle again.
func (s *service) stop() error {
	s.running = false
	runningGauge.Set(0)
	if err := s.driver.Uninit(); err != nil {
		return errors.Wrap(err, "Uninit failed")
	}
	if err := s.initIdle(); err != nil {
		return err
	}
	s.log.Info().Msg("Acquisition stopped")
	return nil
}

// sample triggers the next conversion.
func (s *service) sample() {
	if err := s.driver.Sample(); err != nil {
		sampleErrorsTotal.Inc()
		s.log.Debug().Err(err).Msg("Sample failed")
	}
}

// onEvent is called in interrupt context and must not block.
func (s *service) onEvent(e saadc.Event) {
	now := time.Now()
	switch e.Type {
	case saadc.EventTypeDone:
		s.sequence++
		batch := Batch{
			Sequence: s.sequence,
			Time:     now,
			Channels: s.scanOrder,
			Samples:  append([]saadc.Value(nil), e.Buffer...),
		}
		if s.running {
			// Re-queue as the new secondary buffer
			if err := s.driver.StartBufferConvert(e.Buffer); err != nil {
				requeueErrorsTotal.Inc()
			}
		}
		s.counters.batches.Add(1)
		s.counters.samples.Add(uint64(len(batch.Samples)))
		batchesTotal.Inc()
		samplesTotal.Add(float64(len(batch.Samples)))
		s.enqueue(batch, "batch")
	case saadc.EventTypeLimit:
		s.limitSequence++
		s.counters.limits.Add(1)
		limitEventsTotal.WithLabelValues(channelLabel(e.Channel), e.Limit.String()).Inc()
		s.enqueue(LimitEvent{
			Sequence: s.limitSequence,
			Time:     now,
			Channel:  e.Channel,
			Limit:    e.Limit,
		}, "limit")
	}
}

// enqueue hands the given item to the fan-out without blocking.
func (s *service) enqueue(item interface{}, kind string) {
	select {
	case s.queue <- item:
	default:
		s.counters.dropped.Add(1)
		droppedTotal.WithLabelValues(kind).Inc()
	}
}

// status must be called on the worker goroutine.
func (s *service) status() Status {
	result := Status{
		Running:         s.running,
		State:           s.driver.State().String(),
		Busy:            s.driver.Busy(),
		AllocatedInputs: s.driver.AllocatedInputs(),
		LimitFlags:      s.driver.LimitFlags(),
		Batches:         s.counters.batches.Load(),
		Samples:         s.counters.samples.Load(),
		LimitEvents:     s.counters.limits.Load(),
		Dropped:         s.counters.dropped.Load(),
	}
	for _, index := range s.scanOrder {
		info, _ := s.driver.Channel(index)
		cs := ChannelStatus{
			Index:     index,
			Positive:  info.PositiveInput.String(),
			LimitLow:  info.LimitLow,
			LimitHigh: info.LimitHigh,
		}
		if info.NegativeInput != saadc.InputDisabled {
			cs.Negative = info.NegativeInput.String()
		}
		result.Channels = append(result.Channels, cs)
	}
	return result
}
