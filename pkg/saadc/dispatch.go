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
	"fmt"
	"math/bits"
)

// HandleInterrupt is the interrupt service routine of the converter.
// The peripheral calls it when an enabled event is pending.
// It runs in interrupt context: it never blocks and never logs.
func (d *Driver) HandleInterrupt() {
	if d.handler == nil {
		return
	}
	if d.p.InterruptEnabled(InterruptEnd) && d.p.EventCheck(EventEnd) {
		d.p.EventClear(EventEnd)
		// END while idle belongs to an abandoned acquisition.
		if d.adcState != ConversionIdle {
			if d.activeChannels == 1 {
				d.handleEndSingle()
			} else {
				d.handleEndScan()
			}
		}
		if d.handler == nil {
			return
		}
	}
	if d.p.EventCheck(EventStopped) {
		d.p.EventClear(EventStopped)
		d.adcState = ConversionIdle
		return
	}
	d.handleLimits()
}

// handleEndSingle completes the buffer of a single channel acquisition.
func (d *Driver) handleEndSingle() {
	done := d.buffer
	if d.secondary == nil {
		d.disconnect(d.scanPos)
		d.adcState = ConversionIdle
		d.buffer = nil
	} else {
		d.buffer = d.secondary
		if !d.secondaryArmed {
			d.p.BufferInit(d.buffer)
		}
		d.secondary = nil
		d.secondaryArmed = false
		d.p.TaskTrigger(TaskStart)
		bufferSwapsTotal.Inc()
	}
	d.emitDone(done)
}

// handleEndScan advances an emulated scan by one conversion.
func (d *Driver) handleEndScan() {
	d.bufferPos++
	if d.bufferPos == len(d.buffer) {
		done := d.buffer
		d.disconnect(d.scanPos)
		d.adcState = ConversionIdle
		d.buffer = nil
		if next := d.secondary; next != nil {
			if err := d.startLocked("scan_restart", next); err != nil {
				panic(fmt.Sprintf("cannot continue scan with secondary buffer: %v", err))
			}
			bufferSwapsTotal.Inc()
		}
		d.emitDone(done)
		return
	}

	d.disconnect(d.scanPos)
	d.p.BufferInit(d.buffer[d.bufferPos : d.bufferPos+1])
	next, found := nextActive(d.activeSet(), d.scanPos)
	if !found {
		panic("scan in progress without active channels")
	}
	wrapped := next <= d.scanPos
	d.scanPos = next
	d.connect(next)
	d.p.TaskTrigger(TaskStart)
	if !wrapped {
		// Continue the round; a new round waits for the next Sample.
		d.p.TaskTrigger(TaskSample)
	}
}

// handleLimits dispatches every enabled limit event that is signaled,
// highest flag first.
func (d *Driver) handleLimits() {
	flags := d.limitFlags
	for flags != 0 {
		flag := uint8(bits.LeadingZeros32(flags))
		flags &^= flagBit(flag)
		e := flagEvent(flag)
		if !d.p.EventCheck(e) {
			continue
		}
		d.p.EventClear(e)
		channel, limit := eventLimit(e)
		eventsTotal.WithLabelValues(EventTypeLimit.String()).Inc()
		d.handler(Event{
			Type:    EventTypeLimit,
			Channel: channel,
			Limit:   limit,
		})
	}
}

func (d *Driver) emitDone(buf []Value) {
	eventsTotal.WithLabelValues(EventTypeDone.String()).Inc()
	d.handler(Event{
		Type:   EventTypeDone,
		Buffer: buf,
	})
}
