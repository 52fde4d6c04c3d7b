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

package saadc

import (
	"github.com/pkg/errors"
)

// StartBufferConvert starts an acquisition into the given buffer.
//
// When the driver is idle, the buffer becomes the primary buffer and the
// converter is started. Conversions are triggered with Sample.
// When an acquisition is in flight, the buffer is queued as secondary
// buffer and the acquisition continues into it as soon as the primary
// buffer is full. Only one secondary buffer can be queued at a time.
//
// The buffer is owned by the driver until a Done event returns it.
func (d *Driver) StartBufferConvert(buf []Value) error {
	const op = "start_buffer_convert"
	if d.state != DriverInitialized {
		return d.fail(op, errors.Wrap(InvalidStateError, "driver not initialized"))
	}
	if len(buf) == 0 || len(buf) > MaxBufferSize {
		return d.fail(op, errors.Wrapf(InvalidParamError, "buffer size %d not in 1..%d", len(buf), MaxBufferSize))
	}

	state := d.enterCritical()
	defer d.exitCritical(state)

	if d.adcState == ConversionBusy {
		if d.secondary != nil {
			return d.fail(op, errors.Wrap(BusyError, "secondary buffer already queued"))
		}
		d.secondary = buf
		d.secondaryArmed = false
		if d.activeChannels == 1 && d.waitEvent(EventStarted, d.cfg.SampleBudget) {
			// The peripheral latched the primary window; the next START
			// picks up the secondary without a gap.
			d.p.EventClear(EventStarted)
			d.p.BufferInit(buf)
			d.secondaryArmed = true
		}
		return nil
	}
	return d.startLocked(op, buf)
}

// startLocked starts a new acquisition into the given buffer.
// It is called with the END interrupt masked or from the dispatcher.
func (d *Driver) startLocked(op string, buf []Value) error {
	first, found := nextActive(d.activeSet(), ChannelCount-1)
	if !found {
		return d.fail(op, errors.Wrap(InvalidStateError, "no active channel"))
	}

	d.adcState = ConversionBusy
	d.scanPos = first
	d.buffer = buf
	d.bufferPos = 0
	d.secondary = nil
	d.secondaryArmed = false

	d.connect(first)
	if d.activeChannels == 1 {
		d.p.BufferInit(buf)
	} else {
		d.p.BufferInit(buf[:1])
	}
	d.p.EventClear(EventStarted)
	d.p.TaskTrigger(TaskStart)
	return nil
}

// Sample triggers a conversion in the running acquisition.
// In scan mode one call converts one round over all active channels.
func (d *Driver) Sample() error {
	const op = "sample"
	if d.state != DriverInitialized {
		return d.fail(op, errors.Wrap(InvalidStateError, "driver not initialized"))
	}
	if d.adcState == ConversionIdle {
		return d.fail(op, errors.Wrap(InvalidStateError, "no acquisition in progress"))
	}
	d.p.TaskTrigger(TaskSample)
	return nil
}

// SampleConvert converts a single value on the given channel and waits
// for the result. It cannot be used while an acquisition is in flight.
func (d *Driver) SampleConvert(channel uint8) (Value, error) {
	const op = "sample_convert"
	if d.state != DriverInitialized {
		return 0, d.fail(op, errors.Wrap(InvalidStateError, "driver not initialized"))
	}
	if channel >= ChannelCount {
		return 0, d.fail(op, errors.Wrapf(InvalidParamError, "channel %d out of range", channel))
	}
	if d.adcState != ConversionIdle {
		return 0, d.fail(op, errors.Wrap(BusyError, "acquisition in progress"))
	}
	if !d.channels[channel].active() {
		return 0, d.fail(op, errors.Wrapf(InvalidStateError, "channel %d not initialized", channel))
	}

	state := d.enterCritical()
	d.adcState = ConversionBusy
	result := make([]Value, 1)
	d.p.BufferInit(result)
	d.connect(channel)
	d.p.TaskTrigger(TaskStart)
	d.p.TaskTrigger(TaskSample)

	completed := d.waitEvent(EventEnd, d.cfg.SampleBudget)
	if completed {
		d.p.EventClear(EventEnd)
	} else {
		d.p.TaskTrigger(TaskStop)
		if d.waitEvent(EventStopped, d.cfg.StopBudget) {
			d.p.EventClear(EventStopped)
		}
	}
	d.disconnect(channel)
	d.adcState = ConversionIdle
	d.exitCritical(state)

	if !completed {
		return 0, d.fail(op, errors.Wrapf(TimeoutError, "no conversion on channel %d after %d polls", channel, d.cfg.SampleBudget))
	}
	return result[0], nil
}

// waitEvent polls the given event at most budget times.
func (d *Driver) waitEvent(e PeripheralEvent, budget int) bool {
	for ; budget > 0; budget-- {
		if d.p.EventCheck(e) {
			return true
		}
	}
	return false
}

// connect selects the inputs of the given channel.
func (d *Driver) connect(channel uint8) {
	c := d.channels[channel]
	d.p.ChannelInputSet(channel, c.pselP, c.pselN)
}

// disconnect deselects the inputs of the given channel.
func (d *Driver) disconnect(channel uint8) {
	d.p.ChannelInputSet(channel, InputDisabled, InputDisabled)
}
