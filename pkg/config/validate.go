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

package config

import (
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/binkynet/AnalogWorker/pkg/bridge"
	"github.com/binkynet/AnalogWorker/pkg/saadc"
)

var (
	// InvalidConfigError is the cause of every validation failure.
	InvalidConfigError = errors.New("invalid configuration")
)

// IsInvalidConfig returns true if the cause of the given error is
// InvalidConfigError.
func IsInvalidConfig(err error) bool {
	return err != nil && errors.Cause(err) == InvalidConfigError
}

// Validate checks the configuration and returns all problems found.
func (c Config) Validate() error {
	var ae aerr.AggregateError

	if !lo.Contains([]string{"", bridge.TypeVirtual, bridge.TypeRaspberryPi}, c.Bridge) {
		ae.Add(errors.Errorf("unknown bridge '%s'", c.Bridge))
	}
	if c.ModuleID == "" {
		ae.Add(errors.Errorf("module-id must not be empty"))
	}
	if _, err := c.BridgeSignals(); err != nil {
		ae.Add(err)
	}

	// Converter
	if !lo.Contains([]int{8, 10, 12, 14}, c.Converter.Resolution) {
		ae.Add(errors.Errorf("resolution %d not supported, use 8, 10, 12 or 14", c.Converter.Resolution))
	}
	if c.Converter.StopBudget < 0 || c.Converter.SampleBudget < 0 {
		ae.Add(errors.Errorf("busy-wait budgets must not be negative"))
	}

	// Channels
	if len(c.Channels) > saadc.ChannelCount {
		ae.Add(errors.Errorf("at most %d channels supported, got %d", saadc.ChannelCount, len(c.Channels)))
	}
	for _, dup := range lo.FindDuplicatesBy(c.Channels, func(ch Channel) uint8 { return ch.Index }) {
		ae.Add(errors.Errorf("channel %d configured more than once", dup.Index))
	}
	if c.Converter.Oversample != 0 && len(c.Channels) > 1 {
		ae.Add(errors.Errorf("oversampling requires a single channel, got %d", len(c.Channels)))
	}
	for _, ch := range c.Channels {
		if ch.Index >= saadc.ChannelCount {
			ae.Add(errors.Errorf("channel index %d out of range", ch.Index))
		}
		cfg, err := ch.ChannelConfig()
		if err != nil {
			ae.Add(err)
			continue
		}
		if cfg.PositiveInput == saadc.InputDisabled {
			ae.Add(errors.Errorf("channel %d has no positive input", ch.Index))
		}
		if cfg.Limits != nil && cfg.Limits.Low >= cfg.Limits.High {
			ae.Add(errors.Errorf("channel %d low limit %d not below high limit %d", ch.Index, cfg.Limits.Low, cfg.Limits.High))
		}
	}

	// Acquisition
	if c.Acquisition.BufferSize < 1 || c.Acquisition.BufferSize > saadc.MaxBufferSize {
		ae.Add(errors.Errorf("buffer-size %d not in 1..%d", c.Acquisition.BufferSize, saadc.MaxBufferSize))
	} else if n := len(c.Channels); n > 1 && c.Acquisition.BufferSize%n != 0 {
		ae.Add(errors.Errorf("buffer-size %d is not a multiple of the %d channels", c.Acquisition.BufferSize, n))
	}
	if c.Acquisition.SampleRate <= 0 {
		ae.Add(errors.Errorf("sample-rate must be positive"))
	}
	if c.Acquisition.QueueSize < 1 {
		ae.Add(errors.Errorf("acquisition queue-size must be positive"))
	}

	// MQTT
	if c.MQTT.Address != "" {
		if c.MQTT.QueueSize < 1 {
			ae.Add(errors.Errorf("mqtt queue-size must be positive"))
		}
		if c.MQTT.MaxInFlight < 1 {
			ae.Add(errors.Errorf("mqtt max-in-flight must be positive"))
		}
	}

	// Server
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		ae.Add(errors.Errorf("server port %d out of range", c.Server.Port))
	}

	if ae.IsEmpty() {
		return nil
	}
	return errors.Wrap(InvalidConfigError, ae.Error())
}

// BridgeSignals parses the signals of the simulated converter inputs.
func (c Config) BridgeSignals() (bridge.Signals, error) {
	result := bridge.Signals{}
	for name, desc := range c.Signals {
		in, err := saadc.ParseInput(name)
		if err != nil || !in.IsAnalogPin() {
			return nil, errors.Errorf("signal input '%s' is not an analog pin", name)
		}
		s, err := bridge.ParseSignal(desc)
		if err != nil {
			return nil, errors.Errorf("signal of %s: %v", name, err)
		}
		result[in.Pin()] = s
	}
	return result, nil
}
