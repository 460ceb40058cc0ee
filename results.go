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
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
	"github.com/pkg/errors"
)

// ActionResult is the declared outcome of an action. It is captured during invocation and executed, writing into the
// module response, during a later render pass.
type ActionResult interface {
	ExecuteResult(ctx context.Context, handlerContext *HandlerContext) error
}

// ContentResult writes literal content.
type ContentResult struct {
	Content     string
	ContentType string
}

func Content(content string) *ContentResult {
	return &ContentResult{Content: content}
}

func (result *ContentResult) ExecuteResult(_ context.Context, handlerContext *HandlerContext) error {
	response := handlerContext.Http.Response
	if result.ContentType != "" {
		response.Header().Set("Content-Type", result.ContentType)
	}
	_, err := response.WriteString(result.Content)
	return err
}

// ViewResult renders a templ component into the module response. The context handed to the component carries the
// module and handler contexts, see ModuleContextFromContext.
type ViewResult struct {
	Component  templ.Component
	StatusCode int
}

func View(component templ.Component) *ViewResult {
	return &ViewResult{Component: component}
}

func (result *ViewResult) ExecuteResult(ctx context.Context, handlerContext *HandlerContext) error {
	if result.Component == nil {
		return errors.Errorf("view result of action [%s] has no component", handlerContext.ActionName)
	}
	response := handlerContext.Http.Response
	if response.Header().Get("Content-Type") == "" {
		response.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	if result.StatusCode > 0 {
		response.WriteHeader(result.StatusCode)
	}
	return result.Component.Render(ctx, response)
}

// JsonResult writes Data as JSON.
type JsonResult struct {
	Data interface{}
}

func Json(data interface{}) *JsonResult {
	return &JsonResult{Data: data}
}

func (result *JsonResult) ExecuteResult(_ context.Context, handlerContext *HandlerContext) error {
	payload, err := json.Marshal(result.Data)
	if err != nil {
		return errors.Wrapf(err, "could not encode json result of action [%s]", handlerContext.ActionName)
	}
	response := handlerContext.Http.Response
	response.Header().Set("Content-Type", "application/json")
	_, err = response.Write(payload)
	return err
}

// RedirectResult records a redirect on the module response. The host page decides how to honor it.
type RedirectResult struct {
	Url       string
	Permanent bool
}

func Redirect(url string) *RedirectResult {
	return &RedirectResult{Url: url}
}

func (result *RedirectResult) ExecuteResult(_ context.Context, handlerContext *HandlerContext) error {
	if result.Url == "" {
		return errors.Errorf("redirect result of action [%s] has no url", handlerContext.ActionName)
	}
	response := handlerContext.Http.Response
	response.Header().Set("Location", result.Url)
	if result.Permanent {
		response.WriteHeader(http.StatusMovedPermanently)
	} else {
		response.WriteHeader(http.StatusFound)
	}
	return nil
}

// StatusResult sets a status code without content.
type StatusResult struct {
	StatusCode int
}

func Status(statusCode int) *StatusResult {
	return &StatusResult{StatusCode: statusCode}
}

func (result *StatusResult) ExecuteResult(_ context.Context, handlerContext *HandlerContext) error {
	handlerContext.Http.Response.WriteHeader(result.StatusCode)
	return nil
}

// EmptyResult renders nothing.
type EmptyResult struct{}

func (EmptyResult) ExecuteResult(context.Context, *HandlerContext) error {
	return nil
}
