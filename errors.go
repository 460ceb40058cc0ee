/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package xmodule

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

const (
	PhaseInvoke  = "invoke"
	PhaseExecute = "execute"
)

// ErrorKind classifies module failures.
type ErrorKind int

const (
	ModuleInvocationFailure ErrorKind = iota
	HandlerNotFound
	UnknownAction
)

func (kind ErrorKind) String() string {
	switch kind {
	case HandlerNotFound:
		return "HandlerNotFound"
	case UnknownAction:
		return "UnknownAction"
	default:
		return "ModuleInvocationFailure"
	}
}

// Classify returns the kind of a module failure. Anything that is not a HandlerNotFoundError or an
// UnknownActionError, including errors returned by handler code, is a ModuleInvocationFailure.
func Classify(err error) ErrorKind {
	var handlerNotFound *HandlerNotFoundError
	if errors.As(err, &handlerNotFound) {
		return HandlerNotFound
	}

	var unknownAction *UnknownActionError
	if errors.As(err, &unknownAction) {
		return UnknownAction
	}

	return ModuleInvocationFailure
}

// HandlerNotFoundError is returned when routing matched but the module's HandlerFactory produced no handler.
type HandlerNotFoundError struct {
	ModuleName string
	Handler    string
	Url        string
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("the module [%s] handler [%s] for path [%s] was not found or does not implement Handler", e.ModuleName, e.Handler, e.Url)
}

// UnknownActionError is returned when the routed action does not exist on the handler or declared no result.
type UnknownActionError struct {
	Action      string
	HandlerType string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("a public action [%s] was not found on handler [%s]", e.Action, e.HandlerType)
}

// StatusCode is the transport status an unknown action maps to.
func (e *UnknownActionError) StatusCode() int {
	return http.StatusNotFound
}

// InvocationError is a failure raised by the module pipeline itself (a missing module, an unmatched route, a panic in
// handler code...) rather than an error returned by a handler.
type InvocationError struct {
	ModuleName string
	Phase      string
	Err        error
	Stack      string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("module [%s] failed during %s: %v", e.ModuleName, e.Phase, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

func newInvocationError(moduleName, phase string, err error) *InvocationError {
	return &InvocationError{
		ModuleName: moduleName,
		Phase:      phase,
		Err:        err,
	}
}
