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
	"math/bits"

	"github.com/pkg/errors"
)

// inputSet is a bitset over the physical analog input pins.
type inputSet uint8

// has returns true if the given input is a pin that is allocated.
func (s inputSet) has(in Input) bool {
	return in.IsAnalogPin() && s&(1<<in.Pin()) != 0
}

// set updates the allocation of the given input. Non-pin inputs are ignored.
func (s *inputSet) set(in Input, allocated bool) {
	if !in.IsAnalogPin() {
		return
	}
	if allocated {
		*s |= 1 << in.Pin()
	} else {
		*s &^= 1 << in.Pin()
	}
}

// channelSet is a bitset over channel indices.
type channelSet uint8

// nextActive returns the first channel in the set after the given index,
// wrapping around to the start of the table.
// Use ChannelCount-1 as index to find the lowest channel.
func nextActive(set channelSet, after uint8) (uint8, bool) {
	for i := uint8(1); i <= ChannelCount; i++ {
		idx := (after + i) % ChannelCount
		if set&(1<<idx) != 0 {
			return idx, true
		}
	}
	return 0, false
}

// channel is a slot of the channel table.
type channel struct {
	pselP     Input
	pselN     Input
	limitLow  int16
	limitHigh int16
}

func (c channel) active() bool {
	return c.pselP != InputDisabled
}

// activeSet returns the set of active channels.
func (d *Driver) activeSet() channelSet {
	var set channelSet
	for i, c := range d.channels {
		if c.active() {
			set |= 1 << uint(i)
		}
	}
	return set
}

// ChannelInit configures the channel at given index.
// The channel inputs stay disconnected until an acquisition selects the channel.
func (d *Driver) ChannelInit(index uint8, cfg ChannelConfig) error {
	const op = "channel_init"
	if d.state != DriverInitialized {
		return d.fail(op, errors.Wrap(InvalidStateError, "driver not initialized"))
	}
	if index >= ChannelCount {
		return d.fail(op, errors.Wrapf(InvalidParamError, "channel %d out of range", index))
	}
	if cfg.PositiveInput == InputDisabled || cfg.PositiveInput > InputVDD {
		return d.fail(op, errors.Wrapf(InvalidParamError, "invalid positive input %s", cfg.PositiveInput))
	}
	if cfg.NegativeInput > InputVDD {
		return d.fail(op, errors.Wrapf(InvalidParamError, "invalid negative input %s", cfg.NegativeInput))
	}
	if cfg.NegativeInput.IsAnalogPin() && cfg.NegativeInput == cfg.PositiveInput {
		return d.fail(op, errors.Wrapf(InvalidParamError, "positive and negative input are both %s", cfg.PositiveInput))
	}

	state := d.enterCritical()
	defer d.exitCritical(state)

	if d.adcState == ConversionBusy {
		return d.fail(op, errors.Wrap(BusyError, "conversion in progress"))
	}
	slot := d.channels[index]
	if d.cfg.Oversample != OversampleDisabled && !slot.active() && d.activeChannels > 0 {
		return d.fail(op, errors.Wrap(InvalidStateError, "oversampling requires a single channel"))
	}
	// Inputs held by this channel itself may be requested again.
	owned := func(in Input) bool { return in == slot.pselP || in == slot.pselN }
	for _, in := range []Input{cfg.PositiveInput, cfg.NegativeInput} {
		if d.allocated.has(in) && !owned(in) {
			return d.fail(op, errors.Wrapf(NoMemoryError, "input %s already allocated", in))
		}
	}

	d.allocated.set(slot.pselP, false)
	d.allocated.set(slot.pselN, false)
	d.allocated.set(cfg.PositiveInput, true)
	d.allocated.set(cfg.NegativeInput, true)
	if !slot.active() {
		d.activeChannels++
	}
	d.channels[index].pselP = cfg.PositiveInput
	d.channels[index].pselN = cfg.NegativeInput
	if !slot.active() {
		d.channels[index].limitLow = LimitLowDisabled
		d.channels[index].limitHigh = LimitHighDisabled
	}
	d.p.ChannelInit(index, cfg)
	d.p.ChannelInputSet(index, InputDisabled, InputDisabled)
	if cfg.Limits != nil {
		d.setLimits(index, cfg.Limits.Low, cfg.Limits.High)
	}
	d.updateGauges()

	d.log.Debug().
		Uint8("channel", index).
		Str("pos", cfg.PositiveInput.String()).
		Str("neg", cfg.NegativeInput.String()).
		Uint8("active", d.activeChannels).
		Msg("Channel initialized")
	return nil
}

// ChannelUninit releases the channel at given index and its inputs.
func (d *Driver) ChannelUninit(index uint8) error {
	const op = "channel_uninit"
	if d.state != DriverInitialized {
		return d.fail(op, errors.Wrap(InvalidStateError, "driver not initialized"))
	}
	if index >= ChannelCount {
		return d.fail(op, errors.Wrapf(InvalidParamError, "channel %d out of range", index))
	}

	state := d.enterCritical()
	defer d.exitCritical(state)

	if d.adcState == ConversionBusy {
		return d.fail(op, errors.Wrap(BusyError, "conversion in progress"))
	}
	d.channelUninit(index)
	d.log.Debug().
		Uint8("channel", index).
		Uint8("active", d.activeChannels).
		Msg("Channel uninitialized")
	return nil
}

// channelUninit releases a channel. The caller has checked state and index.
func (d *Driver) channelUninit(index uint8) {
	slot := d.channels[index]
	d.allocated.set(slot.pselP, false)
	d.allocated.set(slot.pselN, false)
	if slot.active() {
		d.activeChannels--
	}
	d.channels[index].pselP = InputDisabled
	d.channels[index].pselN = InputDisabled
	d.p.ChannelInputSet(index, InputDisabled, InputDisabled)
	d.setLimits(index, LimitLowDisabled, LimitHighDisabled)
	d.updateGauges()
}

// updateGauges publishes the allocation state.
func (d *Driver) updateGauges() {
	activeChannelsGauge.Set(float64(d.activeChannels))
	allocatedInputsGauge.Set(float64(bits.OnesCount8(uint8(d.allocated))))
}
