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

import "context"

type ContextKey string

const (
	ModuleContextKey  = ContextKey("xmodule.ModuleContext.ContextKey")
	HandlerContextKey = ContextKey("xmodule.HandlerContext.ContextKey")
)

// WithModuleContext returns a child context in which moduleContext is the module currently executing. The binding
// only lives as long as the returned context, so callers never need to restore a previous value.
func WithModuleContext(ctx context.Context, moduleContext *ModuleContext) context.Context {
	return context.WithValue(ctx, ModuleContextKey, moduleContext)
}

// ModuleContextFromContext is a utility function to retrieve the *ModuleContext of the module currently executing
// during handler actions, result execution and view rendering. Returns nil outside a module phase.
func ModuleContextFromContext(ctx context.Context) *ModuleContext {
	if ctx == nil {
		return nil
	}
	if val := ctx.Value(ModuleContextKey); val != nil {
		if moduleContext, ok := val.(*ModuleContext); ok {
			return moduleContext
		}
	}
	return nil
}

// HandlerContextFromContext is a utility function to retrieve the *HandlerContext of the action currently executing.
func HandlerContextFromContext(ctx context.Context) *HandlerContext {
	if ctx == nil {
		return nil
	}
	if val := ctx.Value(HandlerContextKey); val != nil {
		if handlerContext, ok := val.(*HandlerContext); ok {
			return handlerContext
		}
	}
	return nil
}

// phaseContext binds both the module and the handler context for a single phase.
func phaseContext(ctx context.Context, handlerContext *HandlerContext) context.Context {
	ctx = WithModuleContext(ctx, handlerContext.Module)
	return context.WithValue(ctx, HandlerContextKey, handlerContext)
}
