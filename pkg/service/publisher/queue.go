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

package publisher

type message struct {
	topic   string
	kind    string
	payload []byte
}

// queue is a bounded queue that drops its oldest message when full.
type queue struct {
	c chan message
}

func newQueue(size int) *queue {
	return &queue{c: make(chan message, size)}
}

// push adds the message, dropping the oldest one when the queue is full.
// Returns true if a message was dropped.
func (q *queue) push(m message) bool {
	dropped := false
	for {
		select {
		case q.c <- m:
			return dropped
		default:
		}
		select {
		case <-q.c:
			dropped = true
		default:
		}
	}
}
