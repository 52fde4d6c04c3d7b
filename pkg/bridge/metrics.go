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
	"github.com/binkynet/AnalogWorker/pkg/metrics"
)

const (
	subSystem = "bridge"
)

var (
	// Total number of values converted by the virtual converter
	conversionsTotal = metrics.MustRegisterCounter(subSystem,
		"conversions_total",
		"Total number of values converted by the virtual converter")
	// Total number of SAMPLE tasks without destination
	droppedSamplesTotal = metrics.MustRegisterCounter(subSystem,
		"dropped_samples_total",
		"Total number of SAMPLE tasks without destination")
	// Total number of converter interrupts delivered
	interruptsTotal = metrics.MustRegisterCounter(subSystem,
		"interrupts_total",
		"Total number of converter interrupts delivered")
	// Total number of status led changes per led
	ledChangesTotal = metrics.MustRegisterCounterVec(subSystem,
		"led_changes_total",
		"Total number of status led changes per led",
		"led")
)
