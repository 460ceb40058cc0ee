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
	"context"

	"github.com/openziti/foundation/v2/debugz"
	"github.com/pkg/errors"
)

// ModuleActionInvokedContext is the outcome of the invoke phase: the handler context the action ran in and the result
// it declared, not yet executed. It carries everything the execute phase needs, including the ModuleContext.
type ModuleActionInvokedContext struct {
	HandlerContext *HandlerContext
	ActionResult   ActionResult
	Placement      *ModulePlacement
}

// ModuleContext returns the module context captured at invocation time.
func (invoked *ModuleActionInvokedContext) ModuleContext() *ModuleContext {
	return invoked.HandlerContext.Module
}

// ModuleResultExecutedContext is the outcome of the execute phase. Canceled is true when execution failed and the
// placement's SkipError contained the failure; Exception then holds the failure and the output is empty.
type ModuleResultExecutedContext struct {
	HandlerContext *HandlerContext
	ActionResult   ActionResult
	Canceled       bool
	Exception      error
	Message        string
}

// Response returns the module response the result was executed into.
func (executed *ModuleResultExecutedContext) Response() *ModuleResponse {
	return executed.HandlerContext.Http.Response
}

// Output returns the rendered module output, empty when canceled.
func (executed *ModuleResultExecutedContext) Output() string {
	if executed.Canceled {
		return ""
	}
	return executed.Response().Output()
}

// ActionInvoker runs module actions in two phases: invoking an action captures its result, executing the captured
// result renders it.
type ActionInvoker struct{}

// InvokeActionWithoutExecuteResult runs actionName on the handler of handlerContext and captures the declared result.
// A nil context with a nil error means the action is unknown or declared no result.
func (invoker *ActionInvoker) InvokeActionWithoutExecuteResult(ctx context.Context, placement *ModulePlacement, handlerContext *HandlerContext, actionName string) (invoked *ModuleActionInvokedContext, err error) {
	defer recoverPhase(handlerContext.Module.ModuleName, PhaseInvoke, &err)

	action := handlerContext.Handler.Action(actionName)
	if action == nil {
		return nil, nil
	}

	result, err := action(phaseContext(ctx, handlerContext), handlerContext)
	if err != nil {
		return nil, err
	}

	if result == nil {
		return nil, nil
	}

	return &ModuleActionInvokedContext{
		HandlerContext: handlerContext,
		ActionResult:   result,
		Placement:      placement,
	}, nil
}

// ExecuteActionResult executes a captured result under the module context recorded at invocation, then persists the
// handler's temp data.
func (invoker *ActionInvoker) ExecuteActionResult(ctx context.Context, invoked *ModuleActionInvokedContext) (executed *ModuleResultExecutedContext, err error) {
	handlerContext := invoked.HandlerContext
	defer recoverPhase(handlerContext.Module.ModuleName, PhaseExecute, &err)

	if err = invoked.ActionResult.ExecuteResult(phaseContext(ctx, handlerContext), handlerContext); err != nil {
		return nil, err
	}

	if handlerContext.tempDataProvider != nil && handlerContext.TempData != nil {
		if err = handlerContext.tempDataProvider.SaveTempData(handlerContext, handlerContext.TempData.retained()); err != nil {
			return nil, err
		}
	}

	return &ModuleResultExecutedContext{
		HandlerContext: handlerContext,
		ActionResult:   invoked.ActionResult,
	}, nil
}

// recoverPhase turns a panic raised anywhere in a phase into an InvocationError carrying the stack.
func recoverPhase(moduleName, phase string, err *error) {
	if panicVal := recover(); panicVal != nil {
		*err = &InvocationError{
			ModuleName: moduleName,
			Phase:      phase,
			Err:        errors.Errorf("panic: %v", panicVal),
			Stack:      debugz.GenerateLocalStack(),
		}
	}
}
