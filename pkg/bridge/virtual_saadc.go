//    Copyright 2026 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package bridge

import (
	"math"

	"github.com/binkynet/AnalogWorker/pkg/saadc"
)

const (
	// Number of event registers: 6 global events + 2 limit events per channel.
	eventCount = 6 + 2*saadc.ChannelCount

	// Reset values of the threshold registers.
	resetLimitLow  int16 = math.MinInt16
	resetLimitHigh int16 = math.MaxInt16
)

type virtualChannel struct {
	config saadc.ChannelConfig
	pos    saadc.Input
	neg    saadc.Input
	low    int16
	high   int16
}

// VirtualSAADC is an in-memory model of the converter registers.
//
// It delivers the interrupt synchronously from within the register call
// that makes an enabled event pending. The interrupt handler is never
// nested: events raised while it runs are delivered after it returns.
//
// A VirtualSAADC is not safe for concurrent use; it belongs to the
// goroutine that owns the driver.
type VirtualSAADC struct {
	enabled    bool
	resolution saadc.Resolution
	oversample saadc.Oversample
	channels   [saadc.ChannelCount]virtualChannel

	ptr    []saadc.Value // PTR + MAXCNT
	window []saadc.Value // Latched by START
	amount int           // RESULT.AMOUNT

	events      [eventCount]bool
	intEnabled  saadc.InterruptMask
	lineEnabled bool
	priority    uint8
	handler     func()
	inISR       bool
	clears      uint64

	signals Signals
	tick    uint64
	stalled bool

	tasks       map[saadc.Task]int
	dropped     int
	conversions int
	interrupts  int
}

var _ Converter = &VirtualSAADC{}

// NewVirtualSAADC creates a converter model with all inputs at 0.
func NewVirtualSAADC(signals Signals) *VirtualSAADC {
	v := &VirtualSAADC{
		signals: Signals{},
		tasks:   make(map[saadc.Task]int),
	}
	for pin, s := range signals {
		v.signals[pin] = s
	}
	for i := range v.channels {
		v.channels[i].low = resetLimitLow
		v.channels[i].high = resetLimitHigh
	}
	return v
}

// SetInterruptHandler sets the function called when the interrupt fires.
func (v *VirtualSAADC) SetInterruptHandler(handler func()) {
	v.handler = handler
}

// SetSignal sets the signal of the given analog input pin.
func (v *VirtualSAADC) SetSignal(pin uint8, s Signal) {
	v.signals[pin] = s
}

// SetStalled freezes the converter: SAMPLE and STOP tasks no longer
// complete.
func (v *VirtualSAADC) SetStalled(stalled bool) {
	v.stalled = stalled
}

func (v *VirtualSAADC) Enable()  { v.enabled = true }
func (v *VirtualSAADC) Disable() { v.enabled = false }

func (v *VirtualSAADC) SetResolution(r saadc.Resolution) { v.resolution = r }
func (v *VirtualSAADC) SetOversample(o saadc.Oversample) { v.oversample = o }

func (v *VirtualSAADC) ChannelInit(index uint8, cfg saadc.ChannelConfig) {
	if index < saadc.ChannelCount {
		v.channels[index].config = cfg
	}
}

func (v *VirtualSAADC) ChannelInputSet(index uint8, pos, neg saadc.Input) {
	if index < saadc.ChannelCount {
		v.channels[index].pos = pos
		v.channels[index].neg = neg
	}
}

func (v *VirtualSAADC) ChannelLimitsSet(index uint8, low, high int16) {
	if index < saadc.ChannelCount {
		v.channels[index].low = low
		v.channels[index].high = high
	}
}

func (v *VirtualSAADC) BufferInit(buf []saadc.Value) {
	v.ptr = buf
}

// TaskTrigger runs the given task.
func (v *VirtualSAADC) TaskTrigger(t saadc.Task) {
	v.tasks[t]++
	switch t {
	case saadc.TaskStart:
		if !v.enabled {
			return
		}
		v.window = v.ptr
		v.amount = 0
		v.raise(saadc.EventStarted)
	case saadc.TaskSample:
		v.sample()
	case saadc.TaskStop:
		if v.stalled {
			return
		}
		v.window = nil
		v.raise(saadc.EventStopped)
	}
}

// sample converts every connected channel in ascending order into the
// active window.
func (v *VirtualSAADC) sample() {
	if !v.enabled || v.window == nil || v.amount >= len(v.window) {
		v.dropped++
		droppedSamplesTotal.Inc()
		return
	}
	if v.stalled {
		return
	}
	var raised []saadc.PeripheralEvent
	for i := uint8(0); i < saadc.ChannelCount; i++ {
		c := v.channels[i]
		if c.pos == saadc.InputDisabled {
			continue
		}
		if v.amount >= len(v.window) {
			v.dropped++
			droppedSamplesTotal.Inc()
			break
		}
		value := v.convert(c)
		v.window[v.amount] = value
		v.amount++
		v.conversions++
		conversionsTotal.Inc()
		if int16(value) > c.high {
			raised = append(raised, saadc.LimitEvent(i, saadc.LimitHigh))
		}
		if int16(value) < c.low {
			raised = append(raised, saadc.LimitEvent(i, saadc.LimitLow))
		}
	}
	v.tick++
	if v.amount >= len(v.window) {
		v.window = nil
		raised = append(raised, saadc.EventEnd)
	}
	for _, e := range raised {
		v.events[eventIndex(e)] = true
	}
	v.deliver()
}

// convert returns the raw result of the given channel.
func (v *VirtualSAADC) convert(c virtualChannel) saadc.Value {
	full := float64(int(1) << v.resolution.Bits())
	level := v.level(c.pos)
	lo, hi := 0.0, full-1
	if c.neg != saadc.InputDisabled {
		level -= v.level(c.neg)
		full /= 2
		lo, hi = -full, full-1
	}
	raw := math.Round(level * full)
	return saadc.Value(math.Max(lo, math.Min(hi, raw)))
}

// level returns the signal level of the given input.
func (v *VirtualSAADC) level(in saadc.Input) float64 {
	switch {
	case in == saadc.InputVDD:
		return 1
	case in.IsAnalogPin():
		if s, found := v.signals[in.Pin()]; found {
			return s(v.tick)
		}
	}
	return 0
}

func (v *VirtualSAADC) EventCheck(e saadc.PeripheralEvent) bool {
	if idx := eventIndex(e); idx >= 0 {
		return v.events[idx]
	}
	return false
}

func (v *VirtualSAADC) EventClear(e saadc.PeripheralEvent) {
	if idx := eventIndex(e); idx >= 0 {
		v.events[idx] = false
		v.clears++
	}
}

func (v *VirtualSAADC) InterruptEnable(mask saadc.InterruptMask) {
	v.intEnabled |= mask
	v.deliver()
}

func (v *VirtualSAADC) InterruptDisable(mask saadc.InterruptMask) {
	v.intEnabled &^= mask
}

func (v *VirtualSAADC) InterruptEnabled(mask saadc.InterruptMask) bool {
	return v.intEnabled&mask == mask
}

func (v *VirtualSAADC) InterruptLineEnable(priority uint8) {
	v.priority = priority
	v.lineEnabled = true
	v.deliver()
}

func (v *VirtualSAADC) InterruptLineDisable() {
	v.lineEnabled = false
}

// Raise makes the given event pending as if the hardware signaled it.
func (v *VirtualSAADC) Raise(e saadc.PeripheralEvent) {
	v.raise(e)
}

// raise makes the given event pending.
func (v *VirtualSAADC) raise(e saadc.PeripheralEvent) {
	if idx := eventIndex(e); idx >= 0 {
		v.events[idx] = true
		v.deliver()
	}
}

// deliver runs the interrupt handler while an enabled event is pending.
// A handler run that clears no event ends delivery, as a real interrupt
// would keep firing.
func (v *VirtualSAADC) deliver() {
	if v.inISR || v.handler == nil {
		return
	}
	v.inISR = true
	defer func() { v.inISR = false }()
	for v.lineEnabled && v.pending() {
		clears := v.clears
		v.interrupts++
		interruptsTotal.Inc()
		v.handler()
		if v.clears == clears {
			return
		}
	}
}

// pending returns true if an event with enabled interrupt is pending.
func (v *VirtualSAADC) pending() bool {
	for idx, set := range v.events {
		if set && v.intEnabled&(saadc.InterruptMask(1)<<uint(idx)) != 0 {
			return true
		}
	}
	return false
}

// eventIndex returns the register index of the given event or -1.
func eventIndex(e saadc.PeripheralEvent) int {
	if e < saadc.EventStarted {
		return -1
	}
	idx := int(e-saadc.EventStarted) / 4
	if idx >= eventCount {
		return -1
	}
	return idx
}

// TaskCount returns how often the given task was triggered.
func (v *VirtualSAADC) TaskCount(t saadc.Task) int {
	return v.tasks[t]
}

// ResetCounters clears task counts and dropped samples.
func (v *VirtualSAADC) ResetCounters() {
	v.tasks = make(map[saadc.Task]int)
	v.dropped = 0
	v.conversions = 0
	v.interrupts = 0
}

// Dropped returns the number of samples that had no destination.
func (v *VirtualSAADC) Dropped() int {
	return v.dropped
}

// Conversions returns the number of values written.
func (v *VirtualSAADC) Conversions() int {
	return v.conversions
}

// Interrupts returns the number of interrupt handler runs.
func (v *VirtualSAADC) Interrupts() int {
	return v.interrupts
}

// Connected returns the channels whose inputs are currently selected.
func (v *VirtualSAADC) Connected() []uint8 {
	var result []uint8
	for i, c := range v.channels {
		if c.pos != saadc.InputDisabled {
			result = append(result, uint8(i))
		}
	}
	return result
}

// Enabled returns true when the converter is enabled.
func (v *VirtualSAADC) Enabled() bool {
	return v.enabled
}

// InterruptMask returns the enabled interrupt sources.
func (v *VirtualSAADC) InterruptMask() saadc.InterruptMask {
	return v.intEnabled
}

// LineEnabled returns true when the interrupt line is enabled.
func (v *VirtualSAADC) LineEnabled() bool {
	return v.lineEnabled
}

// Limits returns the threshold registers of the given channel.
func (v *VirtualSAADC) Limits(index uint8) (low, high int16) {
	c := v.channels[index%saadc.ChannelCount]
	return c.low, c.high
}

// Settings returns the resolution and oversample registers.
func (v *VirtualSAADC) Settings() (saadc.Resolution, saadc.Oversample) {
	return v.resolution, v.oversample
}
