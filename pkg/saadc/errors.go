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

import "github.com/pkg/errors"

var (
	// InvalidStateError is returned when an operation does not fit the
	// current driver or conversion state.
	InvalidStateError = errors.New("invalid state")
	IsInvalidState    = isErrorFunc(InvalidStateError)
	// InvalidParamError is returned for out of range channels, inputs or sizes.
	InvalidParamError = errors.New("invalid parameter")
	IsInvalidParam    = isErrorFunc(InvalidParamError)
	// BusyError is returned when a conflicting acquisition or a queued
	// buffer occupies the converter.
	BusyError = errors.New("busy")
	IsBusy    = isErrorFunc(BusyError)
	// NoMemoryError is returned when a physical input is already allocated.
	NoMemoryError = errors.New("input already allocated")
	IsNoMemory    = isErrorFunc(NoMemoryError)
	// TimeoutError is returned when a bounded wait is exceeded.
	TimeoutError = errors.New("timeout")
	IsTimeout    = isErrorFunc(TimeoutError)
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}

// ErrorKind returns a short name of the kind of given error,
// used as metric label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsInvalidState(err):
		return "invalid_state"
	case IsInvalidParam(err):
		return "invalid_param"
	case IsBusy(err):
		return "busy"
	case IsNoMemory(err):
		return "no_memory"
	case IsTimeout(err):
		return "timeout"
	default:
		return "other"
	}
}
