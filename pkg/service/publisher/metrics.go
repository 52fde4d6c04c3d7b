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

package publisher

import "github.com/binkynet/AnalogWorker/pkg/metrics"

const (
	subSystem = "publisher"
)

var (
	// Number of acknowledged publishes per kind
	publishedTotal = metrics.MustRegisterCounterVec(subSystem, "published_total", "Number of acknowledged publishes", "kind")
	// Number of failed publishes per reason
	publishErrorsTotal = metrics.MustRegisterCounterVec(subSystem, "publish_errors_total", "Number of failed publishes", "reason")
	// Number of messages dropped from a full queue
	droppedTotal = metrics.MustRegisterCounter(subSystem, "dropped_total", "Number of messages dropped from a full queue")
	// Number of failed connection attempts
	connectRetriesTotal = metrics.MustRegisterCounter(subSystem, "connect_retries_total", "Number of failed connection attempts")
	// 1 while connected to the broker
	connectedGauge = metrics.MustRegisterGauge(subSystem, "connected", "1 while connected to the broker")
)
