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

	"github.com/ecc1/gpio"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
)

const (
	greenLedPin = 23
	redLedPin   = 24
)

type piBridge struct {
	mutex    sync.Mutex
	greenLed statusLed
	redLed   statusLed
	signals  Signals
	adc      *VirtualSAADC
}

// NewRaspberryPiBridge implements the bridge for Raspberry PI's.
// The status leds are real GPIO outputs. The PI has no converter of this
// family, so the converter is simulated with the given signals.
func NewRaspberryPiBridge(signals Signals) (API, error) {
	activeLow := true
	initialValue := false
	greenLed, err := gpio.Output(greenLedPin, activeLow, initialValue)
	if err != nil {
		return nil, errors.Wrap(err, "Output[greenLed] failed")
	}
	redLed, err := gpio.Output(redLedPin, activeLow, initialValue)
	if err != nil {
		return nil, errors.Wrap(err, "Output[redLed] failed")
	}
	return &piBridge{
		greenLed: statusLed{name: "green", pin: greenLed},
		redLed:   statusLed{name: "red", pin: redLed},
		signals:  signals,
	}, nil
}

// Turn Green status led on/off
func (p *piBridge) SetGreenLED(on bool) error {
	if err := p.greenLed.Set(on); err != nil {
		return errors.Wrap(err, "Set[greenLed] failed")
	}
	return nil
}

// Turn Red status led on/off
func (p *piBridge) SetRedLED(on bool) error {
	if err := p.redLed.Set(on); err != nil {
		return errors.Wrap(err, "Set[redLed] failed")
	}
	return nil
}

// Blink Green status led with given duration between on/off
func (p *piBridge) BlinkGreenLED(delay time.Duration) error {
	if err := p.greenLed.Blink(delay); err != nil {
		return errors.Wrap(err, "Blink[greenLed] failed")
	}
	return nil
}

// Blink Red status led with given duration between on/off
func (p *piBridge) BlinkRedLED(delay time.Duration) error {
	if err := p.redLed.Blink(delay); err != nil {
		return errors.Wrap(err, "Blink[redLed] failed")
	}
	return nil
}

// Open the analog converter
func (p *piBridge) SAADC() (Converter, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.adc == nil {
		p.adc = NewVirtualSAADC(p.signals)
	}
	return p.adc, nil
}

// Close turns off both leds.
func (p *piBridge) Close() error {
	var ae aerr.AggregateError
	if err := p.greenLed.Set(false); err != nil {
		ae.Add(errors.Wrap(err, "Set[greenLed] failed"))
	}
	if err := p.redLed.Set(false); err != nil {
		ae.Add(errors.Wrap(err, "Set[redLed] failed"))
	}
	return ae.AsError()
}
