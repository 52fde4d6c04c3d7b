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
	"time"

	"github.com/binkynet/AnalogWorker/pkg/saadc"
)

const (
	// TypeVirtual is the name of the bridge without hardware.
	TypeVirtual = "virtual"
	// TypeRaspberryPi is the name of the Raspberry PI bridge.
	TypeRaspberryPi = "rpi"
)

// API of the bridge, the hardware that hosts the analog converter
// and the status leds.
type API interface {
	// Turn Green status led on/off
	SetGreenLED(on bool) error
	// Turn Red status led on/off
	SetRedLED(on bool) error
	// Blink Green status led with given duration between on/off
	BlinkGreenLED(delay time.Duration) error
	// Blink Red status led with given duration between on/off
	BlinkRedLED(delay time.Duration) error

	// Open the analog converter
	SAADC() (Converter, error)

	Close() error
}

// Converter is the register interface of the analog converter plus
// the hook that connects its interrupt to the driver.
type Converter interface {
	saadc.Peripheral
	// SetInterruptHandler sets the function called when the interrupt
	// of the converter fires. The handler is never nested.
	SetInterruptHandler(handler func())
}

// Signals maps analog input pins (0..7) to the signal they carry.
type Signals map[uint8]Signal
