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
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// outputPin is the part of a GPIO output used by a status led.
type outputPin interface {
	Write(bool) error
}

// memoryPin is an output pin that only remembers its value.
type memoryPin struct {
	mutex sync.Mutex
	value bool
}

func (p *memoryPin) Write(value bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.value = value
	return nil
}

func (p *memoryPin) Read() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.value
}

type statusLed struct {
	sync.Mutex
	name        string
	pin         outputPin
	blinking    bool
	cancelBlink func()
}

// Turn led on/off, cancel blink
func (l *statusLed) Set(on bool) error {
	l.Mutex.Lock()
	defer l.Mutex.Unlock()

	l.stopBlink()
	if err := l.pin.Write(on); err != nil {
		return errors.Wrap(err, "Write failed")
	}
	ledChangesTotal.WithLabelValues(l.name).Inc()
	return nil
}

// Blink led on/off
func (l *statusLed) Blink(delay time.Duration) error {
	l.Mutex.Lock()
	defer l.Mutex.Unlock()

	l.stopBlink()
	ctx, cancel := context.WithCancel(context.Background())
	l.cancelBlink = cancel
	l.blinking = true
	ledChangesTotal.WithLabelValues(l.name).Inc()
	go func() {
		value := true
		for {
			l.Mutex.Lock()
			if ctx.Err() == nil {
				l.pin.Write(value)
				value = !value
			}
			l.Mutex.Unlock()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Blinking returns true while the led blinks.
func (l *statusLed) Blinking() bool {
	l.Mutex.Lock()
	defer l.Mutex.Unlock()
	return l.blinking
}

// stopBlink cancels blinking. Must be called with the mutex held.
func (l *statusLed) stopBlink() {
	if cancel := l.cancelBlink; cancel != nil {
		l.cancelBlink = nil
		cancel()
	}
	l.blinking = false
}
