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
	"strings"
)

// ActionFunc runs the business logic of an action and declares its result without rendering it. The module and
// handler contexts of the invocation are bound to ctx.
type ActionFunc func(ctx context.Context, handlerContext *HandlerContext) (ActionResult, error)

// Handler is the module equivalent of a controller: a single-use object serving the actions of one handler group.
// Initialize is called once before any action is looked up. Action returns nil for unknown actions.
type Handler interface {
	Initialize(handlerContext *HandlerContext)
	Action(name string) ActionFunc
}

// HandlerContext is everything a handler sees of its invocation.
type HandlerContext struct {
	Handler     Handler
	Module      *ModuleContext
	Http        *ModuleHttpContext
	RouteData   *RouteData
	HandlerName string
	ActionName  string

	// Values is the binding chain: module form, module query, route values, page query, page values.
	Values   ValueProviderCollection
	TempData *TempData
	Url      *UrlHelper
	Page     *PageContext

	tempDataProvider TempDataProvider
}

// HandlerBase is an embeddable Handler implementation with a case-insensitive action table.
type HandlerBase struct {
	handlerContext *HandlerContext
	actions        map[string]ActionFunc
}

func (handler *HandlerBase) Initialize(handlerContext *HandlerContext) {
	handler.handlerContext = handlerContext
}

// Context returns the HandlerContext set by Initialize.
func (handler *HandlerBase) Context() *HandlerContext {
	return handler.handlerContext
}

// HandleAction registers the function serving action name.
func (handler *HandlerBase) HandleAction(name string, action ActionFunc) {
	if handler.actions == nil {
		handler.actions = map[string]ActionFunc{}
	}
	handler.actions[strings.ToLower(name)] = action
}

func (handler *HandlerBase) Action(name string) ActionFunc {
	return handler.actions[strings.ToLower(name)]
}
