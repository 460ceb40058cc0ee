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
	"bytes"
	"context"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ModulePositionField is the form field a page form posts to target a single module position. Posted form values
// are only visible to the module whose placement PositionId equals its value.
const ModulePositionField = "xmodule.position"

// ModuleMultipartMemory is the memory limit used to parse multipart page posts; larger file parts go to disk.
const ModuleMultipartMemory = 32 << 20

// PageContext describes the host page a module is rendered into.
type PageContext struct {
	// Request is the real transport request of the page.
	Request *http.Request
	// ValueProvider is the page's own value-binding source, the lowest priority input of every module.
	ValueProvider ValueProvider
	// AllQueryString is the page-level ambient query string, nil when unavailable.
	AllQueryString url.Values
}

// ModuleHttpContext is the synthetic transport context of one module invocation. Request carries the module URL and
// module scoped inputs, Response buffers the module output, everything else is shared with the Page request.
type ModuleHttpContext struct {
	Page     *http.Request
	Request  *http.Request
	Response *ModuleResponse
	Module   *ModuleContext
}

// RequestContext is what a HandlerFactory receives to create a handler.
type RequestContext struct {
	Http      *ModuleHttpContext
	RouteData *RouteData
	Module    *ModuleContext
	Page      *PageContext
}

// newModuleHttpContext builds the synthetic request/response pair for moduleUrl. Session cookies, identity headers,
// TLS state, the remote address and context values of page flow through unchanged.
func newModuleHttpContext(ctx context.Context, page *http.Request, moduleUrl string, moduleContext *ModuleContext) (*ModuleHttpContext, error) {
	request, err := newModuleRequest(ctx, page, moduleUrl, moduleContext.PositionId())
	if err != nil {
		return nil, err
	}

	return &ModuleHttpContext{
		Page:     page,
		Request:  request,
		Response: NewModuleResponse(),
		Module:   moduleContext,
	}, nil
}

func newModuleRequest(ctx context.Context, page *http.Request, moduleUrl string, positionId string) (*http.Request, error) {
	target, err := url.Parse(virtualPathToPath(moduleUrl))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid module url [%s]", moduleUrl)
	}

	if page == nil {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return nil, errors.Wrapf(err, "could not create request for module url [%s]", moduleUrl)
		}
		request.Form = target.Query()
		request.PostForm = url.Values{}
		return request, nil
	}

	moduleForm, moduleFiles, err := moduleFormValues(page, positionId)
	if err != nil {
		return nil, err
	}

	request := page.Clone(ctx)

	requestUrl := *page.URL
	requestUrl.Path = target.Path
	requestUrl.RawPath = ""
	requestUrl.RawQuery = target.RawQuery
	requestUrl.Fragment = ""
	request.URL = &requestUrl
	request.RequestURI = requestUrl.RequestURI()

	request.Body = http.NoBody
	request.ContentLength = 0
	request.MultipartForm = nil

	if len(moduleForm) == 0 && len(moduleFiles) == 0 {
		request.Method = http.MethodGet
		request.Header.Del("Content-Type")
	}

	request.PostForm = moduleForm
	if len(moduleFiles) > 0 {
		request.MultipartForm = &multipart.Form{Value: moduleForm, File: moduleFiles}
	}
	request.Form = url.Values{}
	for key, values := range moduleForm {
		request.Form[key] = append(request.Form[key], values...)
	}
	for key, values := range target.Query() {
		request.Form[key] = append(request.Form[key], values...)
	}

	return request, nil
}

// moduleFormValues returns the posted fields and files of page when they target positionId. Both urlencoded and
// multipart posts are read.
func moduleFormValues(page *http.Request, positionId string) (url.Values, map[string][]*multipart.FileHeader, error) {
	result := url.Values{}
	if positionId == "" {
		return result, nil, nil
	}

	switch page.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return result, nil, nil
	}

	multipartPost := isMultipart(page)
	if page.PostForm == nil || (multipartPost && page.MultipartForm == nil) {
		if err := parsePageForm(page, multipartPost); err != nil {
			return nil, nil, errors.Wrap(err, "could not parse page form")
		}
	}

	posted := url.Values{}
	for key, values := range page.PostForm {
		posted[key] = values
	}
	if page.MultipartForm != nil {
		for key, values := range page.MultipartForm.Value {
			if _, ok := posted[key]; !ok {
				posted[key] = values
			}
		}
	}

	if posted.Get(ModulePositionField) != positionId {
		return result, nil, nil
	}

	for key, values := range posted {
		if key == ModulePositionField {
			continue
		}
		result[key] = append([]string(nil), values...)
	}

	var files map[string][]*multipart.FileHeader
	if page.MultipartForm != nil && len(page.MultipartForm.File) > 0 {
		files = make(map[string][]*multipart.FileHeader, len(page.MultipartForm.File))
		for key, headers := range page.MultipartForm.File {
			files[key] = append([]*multipart.FileHeader(nil), headers...)
		}
	}

	return result, files, nil
}

func isMultipart(page *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(page.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func parsePageForm(page *http.Request, multipartPost bool) error {
	if !multipartPost {
		return page.ParseForm()
	}
	if err := page.ParseMultipartForm(ModuleMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	if page.PostForm == nil {
		return page.ParseForm()
	}
	return nil
}

// virtualPathToPath converts "~/a/b" into "/a/b".
func virtualPathToPath(virtualPath string) string {
	path := strings.TrimPrefix(virtualPath, "~")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// ModuleResponse is a http.ResponseWriter that captures module output in a private buffer instead of writing to the
// page's real output stream. The host page composes the captured output later.
type ModuleResponse struct {
	header      http.Header
	body        bytes.Buffer
	statusCode  int
	wroteHeader bool
}

var _ http.ResponseWriter = &ModuleResponse{}

// NewModuleResponse creates an empty ModuleResponse with status 200.
func NewModuleResponse() *ModuleResponse {
	return &ModuleResponse{
		header:     http.Header{},
		statusCode: http.StatusOK,
	}
}

func (response *ModuleResponse) Header() http.Header {
	return response.header
}

func (response *ModuleResponse) Write(data []byte) (int, error) {
	if !response.wroteHeader {
		response.WriteHeader(http.StatusOK)
	}
	return response.body.Write(data)
}

func (response *ModuleResponse) WriteString(data string) (int, error) {
	return response.Write([]byte(data))
}

func (response *ModuleResponse) WriteHeader(statusCode int) {
	if response.wroteHeader {
		return
	}
	response.wroteHeader = true
	response.statusCode = statusCode
}

// StatusCode returns the status the module declared, 200 when it declared none.
func (response *ModuleResponse) StatusCode() int {
	return response.statusCode
}

// RedirectLocation returns the location of a redirect the module issued, or an empty string.
func (response *ModuleResponse) RedirectLocation() string {
	if response.statusCode < 300 || response.statusCode >= 400 {
		return ""
	}
	return response.header.Get("Location")
}

// Bytes returns the captured output.
func (response *ModuleResponse) Bytes() []byte {
	return response.body.Bytes()
}

// Output returns the captured output as a string.
func (response *ModuleResponse) Output() string {
	return response.body.String()
}

// Reset discards captured output and headers.
func (response *ModuleResponse) Reset() {
	response.body.Reset()
	response.header = http.Header{}
	response.statusCode = http.StatusOK
	response.wroteHeader = false
}
