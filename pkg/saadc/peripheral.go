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

import "fmt"

// Task is a trigger register of the peripheral.
type Task uint8

const (
	TaskStart Task = iota
	TaskSample
	TaskStop
)

func (t Task) String() string {
	switch t {
	case TaskStart:
		return "START"
	case TaskSample:
		return "SAMPLE"
	case TaskStop:
		return "STOP"
	default:
		return fmt.Sprintf("Task(%d)", uint8(t))
	}
}

// PeripheralEvent is the register offset of a peripheral event.
type PeripheralEvent uint32

const (
	EventStarted PeripheralEvent = 0x100
	EventEnd     PeripheralEvent = 0x104
	EventStopped PeripheralEvent = 0x114
	// Limit events are laid out per channel: high at +0, low at +4,
	// 8 bytes per channel.
	EventCh0LimitH PeripheralEvent = 0x118
	EventCh0LimitL PeripheralEvent = 0x11C
)

// LimitEvent returns the event raised when the given threshold of the
// given channel is crossed.
func LimitEvent(channel uint8, limit LimitType) PeripheralEvent {
	return flagEvent(limitFlag(channel, limit))
}

// IsLimitEvent returns true for per-channel limit events.
func (e PeripheralEvent) IsLimitEvent() bool {
	return e >= EventCh0LimitH && e < EventCh0LimitH+8*ChannelCount
}

func (e PeripheralEvent) String() string {
	switch e {
	case EventStarted:
		return "STARTED"
	case EventEnd:
		return "END"
	case EventStopped:
		return "STOPPED"
	}
	if e.IsLimitEvent() {
		ch, limit := eventLimit(e)
		if limit == LimitLow {
			return fmt.Sprintf("CH%dLIMITL", ch)
		}
		return fmt.Sprintf("CH%dLIMITH", ch)
	}
	return fmt.Sprintf("Event(0x%x)", uint32(e))
}

// InterruptMask is a set of interrupt sources.
type InterruptMask uint32

const (
	InterruptStarted   InterruptMask = 1 << 0
	InterruptEnd       InterruptMask = 1 << 1
	InterruptStopped   InterruptMask = 1 << 5
	InterruptCh0LimitH InterruptMask = 1 << 6
	InterruptCh0LimitL InterruptMask = 1 << 7
)

// LimitInterruptMask returns the interrupt source of the given threshold
// of the given channel.
func LimitInterruptMask(channel uint8, limit LimitType) InterruptMask {
	shift := 2 * uint(channel)
	if limit == LimitLow {
		shift++
	}
	return InterruptCh0LimitH << shift
}

// EventInterruptMask returns the interrupt source that belongs to
// the given event.
func EventInterruptMask(e PeripheralEvent) InterruptMask {
	if e < EventStarted || e >= EventCh0LimitH+8*ChannelCount {
		return 0
	}
	return InterruptMask(1) << (uint32(e-EventStarted) / 4)
}

// Peripheral is the register interface of the converter hardware.
// Implementations must not block.
type Peripheral interface {
	Enable()
	Disable()
	SetResolution(Resolution)
	SetOversample(Oversample)
	// ChannelInit programs the electrical configuration of a channel.
	ChannelInit(index uint8, cfg ChannelConfig)
	// ChannelInputSet connects (or disconnects) the inputs of a channel.
	ChannelInputSet(index uint8, pos, neg Input)
	// ChannelLimitsSet programs the threshold registers of a channel.
	ChannelLimitsSet(index uint8, low, high int16)
	// BufferInit sets the destination of the next conversion window.
	// The window is latched on the next START task.
	BufferInit(buf []Value)
	TaskTrigger(Task)
	EventCheck(PeripheralEvent) bool
	EventClear(PeripheralEvent)
	InterruptEnable(InterruptMask)
	InterruptDisable(InterruptMask)
	// InterruptEnabled returns true if all sources in the mask are enabled.
	InterruptEnabled(InterruptMask) bool
	InterruptLineEnable(priority uint8)
	InterruptLineDisable()
}
