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
	"testing"
	"time"

	"github.com/binkynet/AnalogWorker/pkg/saadc"
)

func newEnabledSAADC(signals Signals) *VirtualSAADC {
	v := NewVirtualSAADC(signals)
	v.SetResolution(saadc.Resolution12Bit)
	v.Enable()
	return v
}

func TestVirtualSampleWithoutWindow(t *testing.T) {
	v := newEnabledSAADC(nil)
	v.ChannelInputSet(0, saadc.InputAIN0, saadc.InputDisabled)
	v.TaskTrigger(saadc.TaskSample)
	if v.Dropped() != 1 || v.Conversions() != 0 {
		t.Errorf("Expected 1 dropped sample, got %d dropped, %d conversions", v.Dropped(), v.Conversions())
	}
}

func TestVirtualWindow(t *testing.T) {
	v := newEnabledSAADC(Signals{0: Constant(0.5), 1: Constant(0.25)})
	v.ChannelInputSet(0, saadc.InputAIN0, saadc.InputDisabled)
	v.ChannelInputSet(3, saadc.InputAIN0, saadc.InputAIN1)
	buf := make([]saadc.Value, 4)
	v.BufferInit(buf)
	// PTR is only latched by START
	v.TaskTrigger(saadc.TaskSample)
	if v.Dropped() != 1 {
		t.Errorf("Expected SAMPLE before START to be dropped")
	}
	v.TaskTrigger(saadc.TaskStart)
	if !v.EventCheck(saadc.EventStarted) {
		t.Error("Expected STARTED")
	}
	v.TaskTrigger(saadc.TaskSample)
	if v.EventCheck(saadc.EventEnd) {
		t.Error("END raised before window is full")
	}
	v.TaskTrigger(saadc.TaskSample)
	if !v.EventCheck(saadc.EventEnd) {
		t.Error("Expected END")
	}
	expected := []saadc.Value{2048, 512, 2048, 512}
	for i := range expected {
		if buf[i] != expected[i] {
			t.Errorf("buf[%d]: expected %d, got %d", i, expected[i], buf[i])
		}
	}
}

func TestVirtualClamp(t *testing.T) {
	v := newEnabledSAADC(Signals{0: Constant(2), 1: Constant(-1)})
	v.ChannelInputSet(0, saadc.InputAIN0, saadc.InputDisabled)
	v.ChannelInputSet(1, saadc.InputAIN1, saadc.InputDisabled)
	v.ChannelInputSet(2, saadc.InputAIN1, saadc.InputAIN0)
	buf := make([]saadc.Value, 3)
	v.BufferInit(buf)
	v.TaskTrigger(saadc.TaskStart)
	v.TaskTrigger(saadc.TaskSample)
	expected := []saadc.Value{4095, 0, -2048}
	for i := range expected {
		if buf[i] != expected[i] {
			t.Errorf("buf[%d]: expected %d, got %d", i, expected[i], buf[i])
		}
	}
}

func TestVirtualInterruptNotNested(t *testing.T) {
	v := newEnabledSAADC(nil)
	v.ChannelInputSet(0, saadc.InputVDD, saadc.InputDisabled)
	v.InterruptEnable(saadc.InterruptEnd)
	v.InterruptLineEnable(6)

	depth, maxDepth, runs := 0, 0, 0
	v.SetInterruptHandler(func() {
		depth++
		runs++
		if depth > maxDepth {
			maxDepth = depth
		}
		v.EventClear(saadc.EventEnd)
		if runs < 3 {
			// Raises END again while in the handler.
			v.BufferInit(make([]saadc.Value, 1))
			v.TaskTrigger(saadc.TaskStart)
			v.TaskTrigger(saadc.TaskSample)
		}
		depth--
	})
	v.BufferInit(make([]saadc.Value, 1))
	v.TaskTrigger(saadc.TaskStart)
	v.TaskTrigger(saadc.TaskSample)
	if runs != 3 {
		t.Errorf("Expected 3 handler runs, got %d", runs)
	}
	if maxDepth != 1 {
		t.Errorf("Expected handler never nested, got depth %d", maxDepth)
	}
	if v.Interrupts() != 3 {
		t.Errorf("Expected 3 interrupts, got %d", v.Interrupts())
	}
}

func TestVirtualMaskedEventDeliveredOnEnable(t *testing.T) {
	v := newEnabledSAADC(nil)
	v.InterruptLineEnable(6)
	runs := 0
	v.SetInterruptHandler(func() {
		runs++
		v.EventClear(saadc.EventStopped)
	})
	v.TaskTrigger(saadc.TaskStop)
	if runs != 0 {
		t.Fatal("Masked event must not be delivered")
	}
	v.InterruptEnable(saadc.InterruptStopped)
	if runs != 1 {
		t.Errorf("Expected pending event delivered on enable, got %d runs", runs)
	}
}

func TestVirtualLimitEvents(t *testing.T) {
	v := newEnabledSAADC(Signals{0: Constant(0.5)})
	v.ChannelInputSet(1, saadc.InputAIN0, saadc.InputDisabled)
	v.ChannelLimitsSet(1, 0, 1000)
	v.BufferInit(make([]saadc.Value, 2))
	v.TaskTrigger(saadc.TaskStart)
	v.TaskTrigger(saadc.TaskSample)
	if !v.EventCheck(saadc.LimitEvent(1, saadc.LimitHigh)) {
		t.Error("Expected high limit event on channel 1")
	}
	if v.EventCheck(saadc.LimitEvent(1, saadc.LimitLow)) {
		t.Error("Unexpected low limit event on channel 1")
	}
}

func TestVirtualStalled(t *testing.T) {
	v := newEnabledSAADC(nil)
	v.ChannelInputSet(0, saadc.InputVDD, saadc.InputDisabled)
	v.BufferInit(make([]saadc.Value, 1))
	v.TaskTrigger(saadc.TaskStart)
	v.SetStalled(true)
	v.TaskTrigger(saadc.TaskSample)
	v.TaskTrigger(saadc.TaskStop)
	if v.EventCheck(saadc.EventEnd) || v.EventCheck(saadc.EventStopped) {
		t.Error("Stalled converter must not complete tasks")
	}
	v.SetStalled(false)
	v.TaskTrigger(saadc.TaskSample)
	if !v.EventCheck(saadc.EventEnd) {
		t.Error("Expected END after stall is lifted")
	}
}

func TestVirtualBridgeLeds(t *testing.T) {
	b, err := NewVirtualBridge(nil)
	if err != nil {
		t.Fatalf("NewVirtualBridge failed: %v", err)
	}
	if err := b.SetGreenLED(true); err != nil {
		t.Fatalf("SetGreenLED failed: %v", err)
	}
	if on, blinking := b.GreenLED(); !on || blinking {
		t.Errorf("Expected green on, got on=%v blinking=%v", on, blinking)
	}
	if err := b.BlinkRedLED(time.Millisecond); err != nil {
		t.Fatalf("BlinkRedLED failed: %v", err)
	}
	if _, blinking := b.RedLED(); !blinking {
		t.Error("Expected red blinking")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if on, blinking := b.RedLED(); on || blinking {
		t.Errorf("Expected red off after Close, got on=%v blinking=%v", on, blinking)
	}
	adc1, _ := b.SAADC()
	adc2, _ := b.SAADC()
	if adc1 != adc2 {
		t.Error("Expected the same converter on every call")
	}
}
