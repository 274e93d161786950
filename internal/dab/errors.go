// Copyright 2025 Arion Yau
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

package dab

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed operation
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotImplemented
)

// Status returns the envelope status code for the kind
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotImplemented:
		return "not_implemented"
	default:
		return "internal"
	}
}

// Error is the error type handlers return to the dispatcher
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// BadRequest reports a malformed or incomplete request payload
func BadRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Internal reports a vendor, network, decode or timeout failure
func Internal(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// NotImplemented reports an operation with no handler
func NotImplemented(operation string) *Error {
	return &Error{Kind: KindNotImplemented, Message: fmt.Sprintf("%s operator not implemented", operation)}
}

// KindOf returns the kind carried by err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var dabErr *Error
	if errors.As(err, &dabErr) {
		return dabErr.Kind
	}
	return KindInternal
}
