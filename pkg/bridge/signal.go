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
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Signal returns the level of an analog input at the given conversion
// tick, as a fraction of the reference voltage.
type Signal func(tick uint64) float64

// Constant returns a signal with a fixed level.
func Constant(level float64) Signal {
	return func(uint64) float64 { return level }
}

// Ramp returns a signal rising from 0 to 1 in period ticks, then
// dropping back to 0.
func Ramp(period uint64) Signal {
	if period == 0 {
		period = 1
	}
	return func(tick uint64) float64 {
		return float64(tick%period) / float64(period)
	}
}

// Sine returns a sine wave around 0.5 with given period (in ticks) and
// amplitude.
func Sine(period uint64, amplitude float64) Signal {
	if period == 0 {
		period = 1
	}
	return func(tick uint64) float64 {
		phase := 2 * math.Pi * float64(tick%period) / float64(period)
		return 0.5 + amplitude*math.Sin(phase)
	}
}

// ParseSignal parses a signal description.
// Supported forms are "const:<level>", "ramp:<period>" and
// "sine:<period>[:<amplitude>]".
func ParseSignal(s string) (Signal, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch strings.ToLower(parts[0]) {
	case "const", "constant":
		if len(parts) != 2 {
			return nil, errors.Errorf("expected const:<level>, got '%s'", s)
		}
		level, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid level in '%s'", s)
		}
		return Constant(level), nil
	case "ramp":
		if len(parts) != 2 {
			return nil, errors.Errorf("expected ramp:<period>, got '%s'", s)
		}
		period, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid period in '%s'", s)
		}
		return Ramp(period), nil
	case "sine":
		if len(parts) < 2 || len(parts) > 3 {
			return nil, errors.Errorf("expected sine:<period>[:<amplitude>], got '%s'", s)
		}
		period, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid period in '%s'", s)
		}
		amplitude := 0.5
		if len(parts) == 3 {
			if amplitude, err = strconv.ParseFloat(parts[2], 64); err != nil {
				return nil, errors.Wrapf(err, "invalid amplitude in '%s'", s)
			}
		}
		return Sine(period, amplitude), nil
	default:
		return nil, errors.Errorf("unknown signal '%s'", s)
	}
}
