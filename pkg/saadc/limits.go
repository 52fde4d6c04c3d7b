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

// Limit flags are stored MSB first: flag 0 is bit 31.
// The high threshold of channel n is flag 2n, the low threshold 2n+1,
// which is the order in which the hardware enumerates its limit events.

// limitFlag returns the flag index of the given threshold.
func limitFlag(channel uint8, limit LimitType) uint8 {
	if limit == LimitLow {
		return 2*channel + 1
	}
	return 2 * channel
}

// flagBit returns the bit of the given flag index in the flags word.
func flagBit(flag uint8) uint32 {
	return 0x80000000 >> flag
}

// flagEvent returns the hardware event of the given flag index.
func flagEvent(flag uint8) PeripheralEvent {
	return EventCh0LimitH + PeripheralEvent(4*uint32(flag))
}

// eventLimit decodes a limit event into its channel and threshold type.
func eventLimit(e PeripheralEvent) (uint8, LimitType) {
	offset := uint32(e - EventCh0LimitH)
	channel := uint8(offset / 8)
	if offset&4 != 0 {
		return channel, LimitLow
	}
	return channel, LimitHigh
}

// channelLimitBits returns the flag bits of both thresholds of a channel.
func channelLimitBits(channel uint8) uint32 {
	return flagBit(limitFlag(channel, LimitLow)) | flagBit(limitFlag(channel, LimitHigh))
}

// SetLimits programs the thresholds of the given channel and arms the
// limit notifications of every threshold that is not set to its
// disabled value (LimitLowDisabled, LimitHighDisabled).
func (d *Driver) SetLimits(channel uint8, low, high int16) error {
	const op = "set_limits"
	if d.state != DriverInitialized {
		return d.fail(op, errors.Wrap(InvalidStateError, "driver not initialized"))
	}
	if d.handler == nil {
		return d.fail(op, errors.Wrap(InvalidStateError, "limits require an event handler"))
	}
	if channel >= ChannelCount {
		return d.fail(op, errors.Wrapf(InvalidParamError, "channel %d out of range", channel))
	}
	d.setLimits(channel, low, high)
	return nil
}

// setLimits updates threshold registers, flags and interrupt sources.
// A flag is always set before its interrupt source is enabled and cleared
// after its interrupt source is disabled.
func (d *Driver) setLimits(channel uint8, low, high int16) {
	d.p.ChannelLimitsSet(channel, low, high)
	d.channels[channel].limitLow = low
	d.channels[channel].limitHigh = high

	d.armLimit(channel, LimitLow, low != LimitLowDisabled)
	d.armLimit(channel, LimitHigh, high != LimitHighDisabled)
}

func (d *Driver) armLimit(channel uint8, limit LimitType, enabled bool) {
	bit := flagBit(limitFlag(channel, limit))
	mask := LimitInterruptMask(channel, limit)
	if enabled {
		d.limitFlags |= bit
		d.p.InterruptEnable(mask)
	} else {
		d.p.InterruptDisable(mask)
		d.limitFlags &^= bit
	}
}
