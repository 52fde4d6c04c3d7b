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

package acquisition

import "github.com/binkynet/AnalogWorker/pkg/metrics"

const (
	subSystem = "acquisition"
)

var (
	// Number of completed batches
	batchesTotal = metrics.MustRegisterCounter(subSystem, "batches_total", "Number of completed batches")
	// Number of acquired samples
	samplesTotal = metrics.MustRegisterCounter(subSystem, "samples_total", "Number of acquired samples")
	// Number of limit events per channel & limit
	limitEventsTotal = metrics.MustRegisterCounterVec(subSystem, "limit_events_total", "Number of limit events", "channel", "limit")
	// Number of batches & limit events dropped because the queue was full
	droppedTotal = metrics.MustRegisterCounterVec(subSystem, "dropped_total", "Number of events dropped on a full queue", "kind")
	// Number of failed Sample triggers
	sampleErrorsTotal = metrics.MustRegisterCounter(subSystem, "sample_errors_total", "Number of failed sample triggers")
	// Number of buffers that could not be re-queued
	requeueErrorsTotal = metrics.MustRegisterCounter(subSystem, "requeue_errors_total", "Number of buffers that could not be re-queued")
	// 1 while continuous acquisition is running
	runningGauge = metrics.MustRegisterGauge(subSystem, "running", "1 while continuous acquisition is running")
)
