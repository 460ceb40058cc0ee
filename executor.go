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
	"fmt"
	"net/http"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Executor runs the request cycle of modules placed on a host page. It holds no per-invocation state; every call
// creates its own ModuleContext, synthetic request and handler. Calls for one page are expected to be made
// sequentially by the page renderer.
type Executor struct {
	Modules  ModuleRegistry
	Settings SettingsProvider
	Invoker  *ActionInvoker
	TempData TempDataProvider
	Metrics  *Collector
}

// NewExecutor creates an Executor from an ExecutorConfig.
func NewExecutor(config *ExecutorConfig, modules ModuleRegistry) *Executor {
	executor := &Executor{
		Modules:  modules,
		Invoker:  &ActionInvoker{},
		TempData: NewCookieTempDataProvider([]byte(config.TempDataKey), config.SecureTempData),
	}

	if config.SettingsRoot != "" {
		executor.Settings = &FileSettingsProvider{Root: config.SettingsRoot}
	}

	if config.MetricsEnabled {
		executor.Metrics = NewCollector(config.MetricsNamespace)
	}

	return executor
}

// InvokeAction resolves and invokes the action of the module described by placement, capturing its result without
// executing it. moduleUrl may be empty, in which case the placement entry, the settings entry or the virtual root is
// used. ctx is normally the page request's context.
//
// On failure, a placement with SkipError returns a nil context and a nil error: the module is omitted from the page.
// Otherwise the failure is returned unchanged.
func (executor *Executor) InvokeAction(ctx context.Context, page *PageContext, site *Site, moduleUrl string, placement *ModulePlacement) (*ModuleActionInvokedContext, error) {
	if placement == nil {
		return nil, errors.New("cannot invoke a module without a placement")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	invoked, err := executor.invokeAction(ctx, page, site, moduleUrl, placement)
	if err != nil {
		if placement.SkipError {
			executor.logger(placement).WithError(err).Debugf("skipping module invoke failure (%s)", Classify(err))
			executor.Metrics.RecordPhase(placement.ModuleName, PhaseInvoke, ResultSkipped, time.Since(start))
			return nil, nil
		}
		executor.Metrics.RecordPhase(placement.ModuleName, PhaseInvoke, ResultFailed, time.Since(start))
		return nil, err
	}

	executor.Metrics.RecordPhase(placement.ModuleName, PhaseInvoke, ResultOk, time.Since(start))
	return invoked, nil
}

func (executor *Executor) invokeAction(ctx context.Context, page *PageContext, site *Site, moduleUrl string, placement *ModulePlacement) (invoked *ModuleActionInvokedContext, err error) {
	defer recoverPhase(placement.ModuleName, PhaseInvoke, &err)

	if executor.Modules == nil {
		return nil, newInvocationError(placement.ModuleName, PhaseInvoke, errors.New("no module registry configured"))
	}

	module := executor.Modules.Get(placement.ModuleName)
	if module == nil {
		return nil, newInvocationError(placement.ModuleName, PhaseInvoke, errors.Errorf("module [%s] is not registered", placement.ModuleName))
	}

	moduleContext := NewModuleContext(module, site, placement, executor.Settings)
	ctx = WithModuleContext(ctx, moduleContext)

	var pageRequest *http.Request
	if page != nil {
		pageRequest = page.Request
	}

	resolvedUrl, err := resolveModuleUrl(ctx, pageRequest, moduleContext, moduleUrl)
	if err != nil {
		return nil, newInvocationError(placement.ModuleName, PhaseInvoke, err)
	}

	logger := executor.logger(placement).WithFields(logrus.Fields{
		"invocationId": moduleContext.InvocationId,
		"moduleUrl":    resolvedUrl,
	})

	httpContext, err := newModuleHttpContext(ctx, pageRequest, resolvedUrl, moduleContext)
	if err != nil {
		return nil, newInvocationError(placement.ModuleName, PhaseInvoke, err)
	}

	routeData, err := module.Routes.GetRouteData(httpContext.Request)
	if err != nil {
		return nil, newInvocationError(placement.ModuleName, PhaseInvoke, err)
	}
	if routeData == nil {
		return nil, newInvocationError(placement.ModuleName, PhaseInvoke, errors.Errorf("no route of module [%s] matches [%s]", placement.ModuleName, resolvedUrl))
	}

	handlerName, err := routeData.GetRequiredString(RouteKeyController)
	if err != nil {
		return nil, newInvocationError(placement.ModuleName, PhaseInvoke, err)
	}
	actionName, err := routeData.GetRequiredString(RouteKeyAction)
	if err != nil {
		return nil, newInvocationError(placement.ModuleName, PhaseInvoke, err)
	}

	requestContext := &RequestContext{
		Http:      httpContext,
		RouteData: routeData,
		Module:    moduleContext,
		Page:      page,
	}

	handler, err := module.Handlers.CreateHandler(requestContext, handlerName)
	if err != nil {
		return nil, newInvocationError(placement.ModuleName, PhaseInvoke, err)
	}
	if handler == nil {
		return nil, &HandlerNotFoundError{
			ModuleName: placement.ModuleName,
			Handler:    handlerName,
			Url:        resolvedUrl,
		}
	}

	handlerContext, err := executor.initializeHandler(handler, requestContext, handlerName, actionName)
	if err != nil {
		return nil, newInvocationError(placement.ModuleName, PhaseInvoke, err)
	}

	logger.Debugf("invoking module action [%s/%s]", handlerName, actionName)

	invoked, err = executor.Invoker.InvokeActionWithoutExecuteResult(ctx, placement, handlerContext, actionName)
	if err != nil {
		return nil, err
	}
	if invoked == nil {
		return nil, &UnknownActionError{
			Action:      actionName,
			HandlerType: fmt.Sprintf("%T", handler),
		}
	}

	return invoked, nil
}

// initializeHandler binds the handler to its synthetic request, the module value binding chain, an isolated temp
// data store and a url helper scoped to the module route table.
func (executor *Executor) initializeHandler(handler Handler, requestContext *RequestContext, handlerName, actionName string) (*HandlerContext, error) {
	handlerContext := &HandlerContext{
		Handler:     handler,
		Module:      requestContext.Module,
		Http:        requestContext.Http,
		RouteData:   requestContext.RouteData,
		HandlerName: handlerName,
		ActionName:  actionName,
		Values:      newModuleValueProvider(requestContext.Http, requestContext.RouteData, requestContext.Page),
		Page:        requestContext.Page,
		Url: &UrlHelper{
			Routes:    requestContext.Module.RouteTable(),
			RouteData: requestContext.RouteData,
		},
		tempDataProvider: executor.TempData,
	}

	var tempValues map[string]interface{}
	if executor.TempData != nil {
		var err error
		if tempValues, err = executor.TempData.LoadTempData(handlerContext); err != nil {
			return nil, err
		}
	}
	handlerContext.TempData = NewTempData(tempValues)

	handler.Initialize(handlerContext)

	return handlerContext, nil
}

// ExecuteActionResult executes the result captured by InvokeAction under the module context captured with it,
// regardless of which module ran in between.
//
// On failure, a placement with SkipError returns a canceled context carrying the failure and an empty output.
// Otherwise the failure is returned unchanged.
func (executor *Executor) ExecuteActionResult(ctx context.Context, invoked *ModuleActionInvokedContext) (*ModuleResultExecutedContext, error) {
	if invoked == nil || invoked.HandlerContext == nil || invoked.ActionResult == nil {
		return nil, errors.New("cannot execute a module result that was not invoked")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	placement := invoked.Placement
	if placement == nil {
		placement = invoked.HandlerContext.Module.Placement
	}
	if placement == nil {
		placement = &ModulePlacement{ModuleName: invoked.HandlerContext.Module.ModuleName}
	}

	start := time.Now()
	executed, err := executor.Invoker.ExecuteActionResult(ctx, invoked)
	if err != nil {
		if placement.SkipError {
			executor.logger(placement).WithError(err).Debugf("canceling module result (%s)", Classify(err))
			executor.Metrics.RecordPhase(placement.ModuleName, PhaseExecute, ResultSkipped, time.Since(start))
			invoked.HandlerContext.Http.Response.Reset()
			return &ModuleResultExecutedContext{
				HandlerContext: invoked.HandlerContext,
				ActionResult:   invoked.ActionResult,
				Canceled:       true,
				Exception:      err,
				Message:        "",
			}, nil
		}
		executor.Metrics.RecordPhase(placement.ModuleName, PhaseExecute, ResultFailed, time.Since(start))
		return nil, err
	}

	executor.Metrics.RecordPhase(placement.ModuleName, PhaseExecute, ResultOk, time.Since(start))
	return executed, nil
}

func (executor *Executor) logger(placement *ModulePlacement) *logrus.Entry {
	return pfxlog.Logger().WithFields(logrus.Fields{
		"module":   placement.ModuleName,
		"position": placement.PositionId,
	})
}
