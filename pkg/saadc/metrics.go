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

package saadc

import (
	"github.com/binkynet/AnalogWorker/pkg/metrics"
)

const (
	subSystem = "saadc"
)

var (
	// Total number of events delivered to the event handler per type
	eventsTotal = metrics.MustRegisterCounterVec(subSystem,
		"events_total",
		"Total number of events delivered to the event handler per type",
		"type")
	// Total number of hand-offs from a primary to a secondary buffer
	bufferSwapsTotal = metrics.MustRegisterCounter(subSystem,
		"buffer_swaps_total",
		"Total number of hand-offs from a primary to a secondary buffer")
	// Total number of failed control operations per operation and error kind
	controlErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"control_errors_total",
		"Total number of failed control operations per operation and error kind",
		"op", "kind")
	// Total number of teardowns without stop acknowledgment
	stopTimeoutsTotal = metrics.MustRegisterCounter(subSystem,
		"stop_timeouts_total",
		"Total number of teardowns without stop acknowledgment")
	// Number of configured channels
	activeChannelsGauge = metrics.MustRegisterGauge(subSystem,
		"active_channels",
		"Number of configured channels")
	// Number of allocated analog input pins
	allocatedInputsGauge = metrics.MustRegisterGauge(subSystem,
		"allocated_inputs",
		"Number of allocated analog input pins")
)
