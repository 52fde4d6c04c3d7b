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

package acquisition

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	greenBlinkDelay = time.Millisecond * 250
	redBlinkDelay   = time.Millisecond * 100
	// Time without activity before a led returns to its resting state
	ledIdleTimeout = time.Second * 2
)

// LedAPI is the part of the bridge that drives the status leds.
type LedAPI interface {
	SetGreenLED(on bool) error
	SetRedLED(on bool) error
	BlinkGreenLED(delay time.Duration) error
	BlinkRedLED(delay time.Duration) error
}

// RunStatusLeds shows acquisition activity on the status leds until the
// given context is cancelled.
// Green is on while the worker is alive and blinks while batches arrive.
// Red blinks after a limit event.
func RunStatusLeds(ctx context.Context, svc Service, leds LedAPI, log zerolog.Logger) error {
	log = log.With().Str("component", "status-leds").Logger()
	batchC := make(chan struct{}, 1)
	limitC := make(chan struct{}, 1)
	notify := func(c chan struct{}) {
		select {
		case c <- struct{}{}:
		default:
		}
	}
	leaveBatches := svc.SubscribeBatches(func(Batch) { notify(batchC) })
	defer leaveBatches()
	leaveLimits := svc.SubscribeLimits(func(LimitEvent) { notify(limitC) })
	defer leaveLimits()

	check := func(err error) {
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set status led")
		}
	}
	check(leds.SetGreenLED(true))
	check(leds.SetRedLED(false))
	defer func() {
		check(leds.SetGreenLED(false))
		check(leds.SetRedLED(false))
	}()

	greenIdle := time.NewTimer(ledIdleTimeout)
	defer greenIdle.Stop()
	redIdle := time.NewTimer(ledIdleTimeout)
	defer redIdle.Stop()
	greenBlinking, redBlinking := false, false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-batchC:
			if !greenBlinking {
				check(leds.BlinkGreenLED(greenBlinkDelay))
				greenBlinking = true
			}
			resetTimer(greenIdle, ledIdleTimeout)
		case <-limitC:
			if !redBlinking {
				check(leds.BlinkRedLED(redBlinkDelay))
				redBlinking = true
			}
			resetTimer(redIdle, ledIdleTimeout)
		case <-greenIdle.C:
			if greenBlinking {
				check(leds.SetGreenLED(true))
				greenBlinking = false
			}
		case <-redIdle.C:
			if redBlinking {
				check(leds.SetRedLED(false))
				redBlinking = false
			}
		}
	}
}

// resetTimer restarts a timer whose channel has not been received from.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
