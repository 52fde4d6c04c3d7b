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

// Package saadc implements the control core of a multi-channel successive
// approximation analog to digital converter.
//
// The driver is used from two contexts: the application context calling
// the exported control methods, and the interrupt context in which the
// peripheral calls HandleInterrupt. The two never run in parallel; the
// interrupt context preempts the application context. The application
// context protects every sequence that touches the acquisition session by
// masking the END interrupt of the peripheral. There is no lock.
package saadc

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Driver is the control block of the converter.
type Driver struct {
	log     zerolog.Logger
	p       Peripheral
	cfg     Config
	handler EventHandler

	state    DriverState
	adcState ConversionState

	channels       [ChannelCount]channel
	allocated      inputSet
	activeChannels uint8

	// Acquisition session
	buffer          []Value
	bufferPos       int
	secondary       []Value
	secondaryArmed  bool
	scanPos         uint8
	limitFlags      uint32
}

// New creates an uninitialized driver for the given peripheral.
// The peripheral must call HandleInterrupt when its interrupt fires.
func New(p Peripheral, log zerolog.Logger) *Driver {
	return &Driver{
		log: log.With().Str("component", "saadc").Logger(),
		p:   p,
	}
}

// Init configures the peripheral and enables it.
// The handler is called from interrupt context and must not block.
func (d *Driver) Init(cfg Config, handler EventHandler) error {
	const op = "init"
	if d.state != DriverUninitialized {
		return d.fail(op, errors.Wrap(InvalidStateError, "driver already initialized"))
	}
	if handler == nil {
		return d.fail(op, errors.Wrap(InvalidParamError, "event handler required"))
	}
	cfg = cfg.withDefaults()

	d.cfg = cfg
	d.handler = handler
	d.p.SetResolution(cfg.Resolution)
	d.p.SetOversample(cfg.Oversample)
	d.channels = [ChannelCount]channel{}
	for i := range d.channels {
		d.channels[i].limitLow = LimitLowDisabled
		d.channels[i].limitHigh = LimitHighDisabled
	}
	d.allocated = 0
	d.activeChannels = 0
	d.buffer = nil
	d.bufferPos = 0
	d.secondary = nil
	d.secondaryArmed = false
	d.limitFlags = 0
	d.adcState = ConversionIdle
	d.state = DriverInitialized

	d.p.InterruptLineEnable(cfg.InterruptPriority)
	d.p.InterruptEnable(InterruptEnd)
	d.p.Enable()
	d.updateGauges()

	d.log.Debug().
		Uint8("resolution", uint8(cfg.Resolution)).
		Uint8("oversample", uint8(cfg.Oversample)).
		Uint8("priority", cfg.InterruptPriority).
		Msg("Driver initialized")
	return nil
}

// Uninit stops the converter, disables it and releases all channels.
// A buffer in flight is abandoned without a Done event.
func (d *Driver) Uninit() error {
	if d.state == DriverUninitialized {
		return d.fail("uninit", errors.Wrap(InvalidStateError, "driver not initialized"))
	}

	d.p.TaskTrigger(TaskStop)
	stopped := false
	for budget := d.cfg.StopBudget; budget > 0; budget-- {
		if d.p.EventCheck(EventStopped) {
			stopped = true
			break
		}
	}
	if stopped {
		d.p.EventClear(EventStopped)
	} else {
		stopTimeoutsTotal.Inc()
		d.log.Warn().Int("budget", d.cfg.StopBudget).Msg("No stop acknowledgment; continuing teardown")
	}
	d.adcState = ConversionIdle
	d.buffer = nil
	d.bufferPos = 0
	d.secondary = nil
	d.secondaryArmed = false

	d.p.Disable()
	d.p.InterruptLineDisable()
	d.p.InterruptDisable(InterruptEnd)

	for i := uint8(0); i < ChannelCount; i++ {
		if d.channels[i].active() {
			d.channelUninit(i)
		}
		// Limits may be armed on channels that were never configured.
		if d.limitFlags&channelLimitBits(i) != 0 {
			d.setLimits(i, LimitLowDisabled, LimitHighDisabled)
		}
	}
	d.handler = nil
	d.state = DriverUninitialized

	d.log.Debug().Bool("stopped", stopped).Msg("Driver uninitialized")
	return nil
}

// Busy returns true when an acquisition is in flight.
func (d *Driver) Busy() bool {
	return d.adcState == ConversionBusy
}

// State returns the lifecycle state of the driver.
func (d *Driver) State() DriverState {
	return d.state
}

// ActiveChannels returns the number of configured channels.
func (d *Driver) ActiveChannels() int {
	return int(d.activeChannels)
}

// AllocatedInputs returns the physical analog inputs (0..7) in use.
func (d *Driver) AllocatedInputs() []uint8 {
	var result []uint8
	for pin := uint8(0); pin < 8; pin++ {
		if d.allocated&(1<<pin) != 0 {
			result = append(result, pin)
		}
	}
	return result
}

// LimitFlags returns the enabled limit flags word (flag 0 is bit 31).
func (d *Driver) LimitFlags() uint32 {
	return d.limitFlags
}

// Channel returns a snapshot of the channel slot at given index.
func (d *Driver) Channel(index uint8) (ChannelInfo, bool) {
	if index >= ChannelCount {
		return ChannelInfo{}, false
	}
	c := d.channels[index]
	return ChannelInfo{
		Index:         index,
		PositiveInput: c.pselP,
		NegativeInput: c.pselN,
		LimitLow:      c.limitLow,
		LimitHigh:     c.limitHigh,
	}, true
}

// enterCritical masks the END interrupt and returns the previous mask state.
func (d *Driver) enterCritical() bool {
	enabled := d.p.InterruptEnabled(InterruptEnd)
	d.p.InterruptDisable(InterruptEnd)
	return enabled
}

// exitCritical restores the END interrupt mask returned by enterCritical.
// A pending END event is delivered as soon as it is unmasked.
func (d *Driver) exitCritical(enabled bool) {
	if enabled {
		d.p.InterruptEnable(InterruptEnd)
	}
}

// fail records a failed control operation.
func (d *Driver) fail(op string, err error) error {
	controlErrorsTotal.WithLabelValues(op, ErrorKind(err)).Inc()
	return err
}
