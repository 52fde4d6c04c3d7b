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
	"sync"
	"time"
)

// VirtualBridge is the bridge without hardware.
// Its converter is a VirtualSAADC and its leds only keep their state.
type VirtualBridge struct {
	mutex    sync.Mutex
	greenPin memoryPin
	redPin   memoryPin
	greenLed statusLed
	redLed   statusLed
	signals  Signals
	adc      *VirtualSAADC
}

var _ API = &VirtualBridge{}

// NewVirtualBridge implements the bridge for a virtual analog worker.
func NewVirtualBridge(signals Signals) (*VirtualBridge, error) {
	b := &VirtualBridge{
		signals: signals,
	}
	b.greenLed = statusLed{name: "green", pin: &b.greenPin}
	b.redLed = statusLed{name: "red", pin: &b.redPin}
	return b, nil
}

// Turn Green status led on/off
func (p *VirtualBridge) SetGreenLED(on bool) error {
	return p.greenLed.Set(on)
}

// Turn Red status led on/off
func (p *VirtualBridge) SetRedLED(on bool) error {
	return p.redLed.Set(on)
}

// Blink Green status led with given duration between on/off
func (p *VirtualBridge) BlinkGreenLED(delay time.Duration) error {
	return p.greenLed.Blink(delay)
}

// Blink Red status led with given duration between on/off
func (p *VirtualBridge) BlinkRedLED(delay time.Duration) error {
	return p.redLed.Blink(delay)
}

// GreenLED returns the state of the green led.
func (p *VirtualBridge) GreenLED() (on, blinking bool) {
	return p.greenPin.Read(), p.greenLed.Blinking()
}

// RedLED returns the state of the red led.
func (p *VirtualBridge) RedLED() (on, blinking bool) {
	return p.redPin.Read(), p.redLed.Blinking()
}

// SAADC returns the virtual converter.
func (p *VirtualBridge) SAADC() (Converter, error) {
	return p.VirtualSAADC(), nil
}

// VirtualSAADC returns the virtual converter, creating it on first use.
func (p *VirtualBridge) VirtualSAADC() *VirtualSAADC {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.adc == nil {
		p.adc = NewVirtualSAADC(p.signals)
	}
	return p.adc
}

func (p *VirtualBridge) Close() error {
	p.greenLed.Set(false)
	p.redLed.Set(false)
	return nil
}
