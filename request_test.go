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
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testContextKey string

func newFormPage(positionId string, fields url.Values) *http.Request {
	form := url.Values{}
	for key, values := range fields {
		form[key] = values
	}
	if positionId != "" {
		form.Set(ModulePositionField, positionId)
	}
	page := httptest.NewRequest(http.MethodPost, "/page?ref=home", strings.NewReader(form.Encode()))
	page.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return page
}

func Test_newModuleRequest(t *testing.T) {

	t.Run("the module url replaces the page url", func(t *testing.T) {
		page := httptest.NewRequest(http.MethodGet, "https://example.com/page?ref=home", nil)

		request, err := newModuleRequest(context.Background(), page, "~/banner/show/7?size=2", "main")

		req := require.New(t)
		req.NoError(err)
		req.Equal("/banner/show/7", request.URL.Path)
		req.Equal("size=2", request.URL.RawQuery)
		req.Equal("example.com", request.Host)
		req.Equal("/banner/show/7?size=2", request.RequestURI)
		req.Equal("/page", page.URL.Path, "the page request must not change")
	})

	t.Run("cookies, headers and context values flow through", func(t *testing.T) {
		page := httptest.NewRequest(http.MethodGet, "/page", nil)
		page.AddCookie(&http.Cookie{Name: "session", Value: "abc"})
		page.Header.Set("X-User", "alice")
		page.RemoteAddr = "10.0.0.1:1234"

		ctx := context.WithValue(context.Background(), testContextKey("tenant"), "acme")
		request, err := newModuleRequest(ctx, page, "~/", "")

		req := require.New(t)
		req.NoError(err)
		cookie, err := request.Cookie("session")
		req.NoError(err)
		req.Equal("abc", cookie.Value)
		req.Equal("alice", request.Header.Get("X-User"))
		req.Equal("10.0.0.1:1234", request.RemoteAddr)
		req.Equal("acme", request.Context().Value(testContextKey("tenant")))
	})

	t.Run("a form posted to the module position is visible", func(t *testing.T) {
		page := newFormPage("main", url.Values{"title": {"hello"}})

		request, err := newModuleRequest(context.Background(), page, "~/banner/save", "main")

		req := require.New(t)
		req.NoError(err)
		req.Equal(http.MethodPost, request.Method)
		req.Equal("hello", request.PostForm.Get("title"))
		req.Equal("hello", request.FormValue("title"))
		req.Empty(request.PostForm.Get(ModulePositionField))
	})

	t.Run("a form posted to another position is hidden", func(t *testing.T) {
		page := newFormPage("sidebar", url.Values{"title": {"hello"}})

		request, err := newModuleRequest(context.Background(), page, "~/banner/save", "main")

		req := require.New(t)
		req.NoError(err)
		req.Equal(http.MethodGet, request.Method)
		req.Empty(request.PostForm)
		req.Empty(request.FormValue("title"))
	})

	t.Run("an untargeted form is hidden", func(t *testing.T) {
		page := newFormPage("", url.Values{"title": {"hello"}})

		request, err := newModuleRequest(context.Background(), page, "~/banner/save", "main")

		req := require.New(t)
		req.NoError(err)
		req.Equal(http.MethodGet, request.Method)
		req.Empty(request.PostForm)
	})

	t.Run("the page query string is not part of the module query", func(t *testing.T) {
		page := httptest.NewRequest(http.MethodGet, "/page?ref=home", nil)

		request, err := newModuleRequest(context.Background(), page, "~/banner", "")

		req := require.New(t)
		req.NoError(err)
		req.Empty(request.URL.Query().Get("ref"))
	})

	t.Run("without a page a plain GET request is created", func(t *testing.T) {
		request, err := newModuleRequest(context.Background(), nil, "~/banner?id=4", "main")

		req := require.New(t)
		req.NoError(err)
		req.Equal(http.MethodGet, request.Method)
		req.Equal("/banner", request.URL.Path)
		req.Equal("4", request.FormValue("id"))
	})
}

func newMultipartPage(t *testing.T, positionId string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField(ModulePositionField, positionId))
	require.NoError(t, writer.WriteField("title", "hello"))
	part, err := writer.CreateFormFile("upload", "banner.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	page := httptest.NewRequest(http.MethodPost, "/page", body)
	page.Header.Set("Content-Type", writer.FormDataContentType())
	return page
}

func Test_newModuleRequest_Multipart(t *testing.T) {

	t.Run("a multipart form posted to the module position is visible", func(t *testing.T) {
		page := newMultipartPage(t, "main")

		request, err := newModuleRequest(context.Background(), page, "~/banner/upload", "main")

		req := require.New(t)
		req.NoError(err)
		req.Equal(http.MethodPost, request.Method)
		req.Equal("hello", request.PostForm.Get("title"))
		req.Equal("hello", request.FormValue("title"))
		req.Empty(request.PostForm.Get(ModulePositionField))
		req.NotNil(request.MultipartForm)
		req.Len(request.MultipartForm.File["upload"], 1)
		req.Equal("banner.png", request.MultipartForm.File["upload"][0].Filename)
	})

	t.Run("a multipart form posted to another position is hidden", func(t *testing.T) {
		page := newMultipartPage(t, "sidebar")

		request, err := newModuleRequest(context.Background(), page, "~/banner/upload", "main")

		req := require.New(t)
		req.NoError(err)
		req.Equal(http.MethodGet, request.Method)
		req.Empty(request.PostForm)
		req.Nil(request.MultipartForm)
		req.Empty(request.FormValue("title"))
		req.True(strings.HasPrefix(page.Header.Get("Content-Type"), "multipart/form-data"), "the page request must not change")
	})

	t.Run("a page form parsed by the host is reused", func(t *testing.T) {
		page := newMultipartPage(t, "main")
		require.NoError(t, page.ParseMultipartForm(ModuleMultipartMemory))

		request, err := newModuleRequest(context.Background(), page, "~/banner/upload", "main")

		req := require.New(t)
		req.NoError(err)
		req.Equal("hello", request.PostForm.Get("title"))
	})
}

func Test_ModuleResponse(t *testing.T) {

	t.Run("output is buffered privately", func(t *testing.T) {
		page := httptest.NewRecorder()
		response := NewModuleResponse()

		_, err := response.WriteString("<p>module</p>")

		req := require.New(t)
		req.NoError(err)
		req.Equal("<p>module</p>", response.Output())
		req.Equal(http.StatusOK, response.StatusCode())
		req.Zero(page.Body.Len())
	})

	t.Run("the first status wins", func(t *testing.T) {
		response := NewModuleResponse()
		response.WriteHeader(http.StatusFound)
		response.WriteHeader(http.StatusTeapot)
		response.Header().Set("Location", "/elsewhere")

		req := require.New(t)
		req.Equal(http.StatusFound, response.StatusCode())
		req.Equal("/elsewhere", response.RedirectLocation())
	})

	t.Run("reset discards output and headers", func(t *testing.T) {
		response := NewModuleResponse()
		response.Header().Set("X-Test", "1")
		response.WriteHeader(http.StatusNotFound)
		_, _ = response.WriteString("gone")

		response.Reset()

		req := require.New(t)
		req.Empty(response.Output())
		req.Empty(response.Header())
		req.Equal(http.StatusOK, response.StatusCode())
		req.Empty(response.RedirectLocation())
	})
}
