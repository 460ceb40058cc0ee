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

/*
Package xmodule executes independently addressable page modules (widgets) inside a host page by simulating a full
request cycle for each of them without a network round trip.

Basics

A host page declares where modules sit through ModulePlacement values. For each placement the host calls
Executor.InvokeAction, which builds a ModuleContext, resolves the module URL, constructs a synthetic http.Request and a
buffered ModuleResponse, resolves route data through the module's RouteTable, creates a Handler through the module's
HandlerFactory, initializes it and invokes the routed action. The ActionResult the action declares is captured in a
ModuleActionInvokedContext but not rendered.

Rendering happens later, when the host composes its output, by calling Executor.ExecuteActionResult. That phase runs
under the ModuleContext captured during invocation, not under whatever module ran last, so invocations and executions of
different modules may interleave freely within one page render.

Module URLs

Module URLs are virtual: they start with the "~" root marker and are routed against the module's own RouteTable. When
the host supplies no URL, one is derived from the placement's Entry, then from the module settings' Entry, and finally
falls back to "~/".

Inputs

Handlers read their inputs through a ValueProviderCollection that consults, in order: the module's posted form, the
module URL's query string, route values, the page's query string and the page's own ValueProvider. Module inputs
therefore override page inputs of the same name.

Failures

Each phase is a single failure domain. When a placement sets SkipError, failures are contained: InvokeAction returns a
nil context and ExecuteActionResult returns a canceled ModuleResultExecutedContext. Otherwise the error is returned to
the host page.

Errors returned by handler actions and results reach the host unchanged. Failures of the pipeline and its collaborators
(module registry, routing, handler factory, settings and temp data providers, panics) are returned as *InvocationError
carrying the module name and phase. Its Err field holds the collaborator's error as returned, without further wrapping,
so errors.Is and errors.As see through it.

The "current" module is never stored in a global. It is bound to the context.Context passed to handler actions and
results, see ModuleContextFromContext.
*/
package xmodule
