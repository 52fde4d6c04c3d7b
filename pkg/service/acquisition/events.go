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
	"context"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/binkynet/AnalogWorker/pkg/saadc"
)

// Batch is a copy of a completed buffer.
type Batch struct {
	Sequence uint64
	Time     time.Time
	// Channels in the order their samples are interleaved
	Channels []uint8
	Samples  []saadc.Value
}

// LimitEvent reports a crossed channel threshold.
type LimitEvent struct {
	Sequence uint64
	Time     time.Time
	Channel  uint8
	Limit    saadc.LimitType
}

// Status of the acquisition service.
type Status struct {
	Running         bool            `json:"running"`
	State           string          `json:"state"`
	Busy            bool            `json:"busy"`
	Channels        []ChannelStatus `json:"channels"`
	AllocatedInputs []uint8         `json:"allocated_inputs"`
	LimitFlags      uint32          `json:"limit_flags"`
	Batches         uint64          `json:"batches"`
	Samples         uint64          `json:"samples"`
	LimitEvents     uint64          `json:"limit_events"`
	Dropped         uint64          `json:"dropped"`
}

// ChannelStatus is the status of a configured channel.
type ChannelStatus struct {
	Index     uint8  `json:"index"`
	Positive  string `json:"positive"`
	Negative  string `json:"negative,omitempty"`
	LimitLow  int16  `json:"limit_low"`
	LimitHigh int16  `json:"limit_high"`
}

// runFanOut publishes queued batches and limit events to the subscribers.
func (s *service) runFanOut(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-s.queue:
			switch item := item.(type) {
			case Batch:
				s.batches.Pub(item)
			case LimitEvent:
				s.limits.Pub(item)
			}
		}
	}
}

// runThroughputLog logs the acquisition throughput every log interval.
func (s *service) runThroughputLog(ctx context.Context) {
	interval := s.config.Acquisition.LogInterval
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var lastSamples uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			samples := s.counters.samples.Load()
			perSecond := float64(samples-lastSamples) / interval.Seconds()
			lastSamples = samples
			s.log.Info().
				Str("batches", humanize.Comma(int64(s.counters.batches.Load()))).
				Str("samples", humanize.Comma(int64(samples))).
				Str("throughput", humanize.SIWithDigits(perSecond, 1, "S/s")).
				Str("limit-events", humanize.Comma(int64(s.counters.limits.Load()))).
				Str("dropped", humanize.Comma(int64(s.counters.dropped.Load()))).
				Msg("Acquisition throughput")
		}
	}
}

func channelLabel(channel uint8) string {
	return strconv.Itoa(int(channel))
}
