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
	"strings"

	"github.com/pkg/errors"
)

const (
	// ChannelCount is the number of logical channels of the converter.
	ChannelCount = 8
	// MaxBufferSize is the largest buffer the peripheral can fill in one go
	// (15-bit MAXCNT register).
	MaxBufferSize = 0x7FFF

	// LimitLowDisabled is the low threshold value that disables the low limit.
	LimitLowDisabled int16 = -2048
	// LimitHighDisabled is the high threshold value that disables the high limit.
	LimitHighDisabled int16 = 2047

	// DefaultStopBudget is the default number of polls waiting for
	// the stop acknowledgment during teardown.
	DefaultStopBudget = 10000
	// DefaultSampleBudget is the default number of polls waiting for a
	// single conversion to complete.
	DefaultSampleBudget = 100000
)

// Value is a single raw conversion result.
type Value int16

// DriverState is the lifecycle state of the driver.
type DriverState uint8

const (
	DriverUninitialized DriverState = iota
	DriverInitialized
)

func (s DriverState) String() string {
	if s == DriverInitialized {
		return "initialized"
	}
	return "uninitialized"
}

// ConversionState tells if an acquisition is in flight.
type ConversionState uint8

const (
	ConversionIdle ConversionState = iota
	ConversionBusy
)

func (s ConversionState) String() string {
	if s == ConversionBusy {
		return "busy"
	}
	return "idle"
}

// Input selects what a channel input is connected to.
type Input uint8

const (
	InputDisabled Input = iota
	InputAIN0
	InputAIN1
	InputAIN2
	InputAIN3
	InputAIN4
	InputAIN5
	InputAIN6
	InputAIN7
	InputVDD
)

// IsAnalogPin returns true if the input is a physical analog input pin.
func (i Input) IsAnalogPin() bool {
	return i >= InputAIN0 && i <= InputAIN7
}

// Pin returns the physical analog input number (0..7).
// Only valid when IsAnalogPin returns true.
func (i Input) Pin() uint8 {
	return uint8(i - InputAIN0)
}

func (i Input) String() string {
	switch {
	case i == InputDisabled:
		return "NC"
	case i.IsAnalogPin():
		return fmt.Sprintf("AIN%d", i.Pin())
	case i == InputVDD:
		return "VDD"
	default:
		return fmt.Sprintf("Input(%d)", uint8(i))
	}
}

// ParseInput parses an input name such as "AIN3", "VDD" or "NC".
func ParseInput(s string) (Input, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "", "NC", "DISABLED":
		return InputDisabled, nil
	case "VDD":
		return InputVDD, nil
	}
	for i := InputAIN0; i <= InputAIN7; i++ {
		if i.String() == name {
			return i, nil
		}
	}
	return InputDisabled, errors.Wrapf(InvalidParamError, "unknown input '%s'", s)
}

// Resolution is the opaque resolution setting of the converter.
type Resolution uint8

const (
	Resolution8Bit Resolution = iota
	Resolution10Bit
	Resolution12Bit
	Resolution14Bit
)

// Bits returns the number of bits of the resolution.
func (r Resolution) Bits() uint {
	return 8 + 2*uint(r)
}

// Oversample is the opaque oversampling setting of the converter.
// Zero disables oversampling.
type Oversample uint8

const (
	OversampleDisabled Oversample = 0
)

// Config of the driver.
type Config struct {
	Resolution        Resolution
	Oversample        Oversample
	InterruptPriority uint8
	// Number of polls waiting for the stop acknowledgment during Uninit.
	StopBudget int
	// Number of polls waiting for a conversion in SampleConvert.
	SampleBudget int
}

// DefaultConfig returns the default driver configuration.
func DefaultConfig() Config {
	return Config{
		Resolution:        Resolution10Bit,
		Oversample:        OversampleDisabled,
		InterruptPriority: 6,
		StopBudget:        DefaultStopBudget,
		SampleBudget:      DefaultSampleBudget,
	}
}

// withDefaults fills in zero budgets.
func (c Config) withDefaults() Config {
	if c.StopBudget <= 0 {
		c.StopBudget = DefaultStopBudget
	}
	if c.SampleBudget <= 0 {
		c.SampleBudget = DefaultSampleBudget
	}
	return c
}

// ChannelSettings holds the electrical configuration of a channel.
// It is passed to the peripheral as is.
type ChannelSettings struct {
	ResistorP       uint8
	ResistorN       uint8
	Gain            uint8
	Reference       uint8
	AcquisitionTime uint8
	Differential    bool
}

// Limits of a channel.
type Limits struct {
	Low  int16
	High int16
}

// ChannelConfig is the configuration of a single channel.
type ChannelConfig struct {
	PositiveInput Input
	NegativeInput Input
	Settings      ChannelSettings
	// Limits to arm when the channel is set up.
	// Nil leaves both thresholds disabled.
	Limits *Limits
}

// SingleEnded returns a channel configuration measuring the given input
// against ground.
func SingleEnded(input Input) ChannelConfig {
	return ChannelConfig{
		PositiveInput: input,
		NegativeInput: InputDisabled,
	}
}

// Differential returns a channel configuration measuring the difference
// between the given inputs.
func Differential(pos, neg Input) ChannelConfig {
	return ChannelConfig{
		PositiveInput: pos,
		NegativeInput: neg,
		Settings: ChannelSettings{
			Differential: true,
		},
	}
}

// LimitType identifies one of the two thresholds of a channel.
type LimitType uint8

const (
	LimitHigh LimitType = iota
	LimitLow
)

func (t LimitType) String() string {
	if t == LimitLow {
		return "low"
	}
	return "high"
}

// EventType identifies the kind of an Event.
type EventType uint8

const (
	EventTypeDone EventType = iota
	EventTypeLimit
)

func (t EventType) String() string {
	if t == EventTypeLimit {
		return "limit"
	}
	return "done"
}

// Event is delivered to the EventHandler.
type Event struct {
	Type EventType
	// Buffer that has been filled (EventTypeDone only).
	// It is the slice passed to StartBufferConvert.
	Buffer []Value
	// Channel whose threshold was crossed (EventTypeLimit only).
	Channel uint8
	// Limit that was crossed (EventTypeLimit only).
	Limit LimitType
}

// EventHandler is called from interrupt context.
// It must return quickly and must not block.
// It may call StartBufferConvert to queue the next buffer.
type EventHandler func(Event)

// ChannelInfo is a snapshot of a channel slot.
type ChannelInfo struct {
	Index         uint8
	PositiveInput Input
	NegativeInput Input
	LimitLow      int16
	LimitHigh     int16
}

// Active returns true when the channel has its positive input set.
func (c ChannelInfo) Active() bool {
	return c.PositiveInput != InputDisabled
}
