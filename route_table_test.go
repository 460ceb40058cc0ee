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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func routeRequest(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func Test_MuxRouteTable_GetRouteData(t *testing.T) {
	table, err := NewMuxRouteTableFromRoutes(
		&Route{
			Name:     "archive",
			Url:      "archive/{year:[0-9]+}",
			Defaults: map[string]string{RouteKeyController: "news", RouteKeyAction: "archive"},
		},
		defaultRoute(),
	)
	require.NoError(t, err)

	t.Run("the virtual root uses every default", func(t *testing.T) {
		routeData, err := table.GetRouteData(routeRequest("/"))

		req := require.New(t)
		req.NoError(err)
		req.NotNil(routeData)
		req.Equal("default", routeData.RouteName)
		req.Equal(map[string]string{RouteKeyController: "home", RouteKeyAction: "index"}, routeData.Values)
	})

	t.Run("optional trailing segments may be omitted", func(t *testing.T) {
		routeData, err := table.GetRouteData(routeRequest("/promo"))

		req := require.New(t)
		req.NoError(err)
		req.Equal("promo", routeData.Get(RouteKeyController))
		req.Equal("index", routeData.Get(RouteKeyAction))
		req.Equal("", routeData.Get("id"))
	})

	t.Run("a full path binds every variable", func(t *testing.T) {
		routeData, err := table.GetRouteData(routeRequest("/banner/show/7?x=1"))

		req := require.New(t)
		req.NoError(err)
		req.Equal(map[string]string{RouteKeyController: "banner", RouteKeyAction: "show", "id": "7"}, routeData.Values)
	})

	t.Run("routes are matched in order with fixed defaults", func(t *testing.T) {
		routeData, err := table.GetRouteData(routeRequest("/archive/2020"))

		req := require.New(t)
		req.NoError(err)
		req.Equal("archive", routeData.RouteName)
		req.Equal("news", routeData.Get(RouteKeyController))
		req.Equal("2020", routeData.Get("year"))
	})

	t.Run("an unmatched path returns no route data", func(t *testing.T) {
		routeData, err := table.GetRouteData(routeRequest("/a/b/c/d"))

		req := require.New(t)
		req.NoError(err)
		req.Nil(routeData)
	})

	t.Run("a nil request is an error", func(t *testing.T) {
		_, err := table.GetRouteData(nil)
		require.Error(t, err)
	})
}

func Test_MuxRouteTable_LiteralCase(t *testing.T) {
	table, err := NewMuxRouteTableFromRoutes(
		&Route{
			Name:     "news",
			Url:      "news/{action}",
			Defaults: map[string]string{RouteKeyController: "news"},
		},
		&Route{
			Name:     "feed",
			Url:      "feed.rss",
			Defaults: map[string]string{RouteKeyController: "feed", RouteKeyAction: "rss"},
		},
	)
	require.NoError(t, err)

	t.Run("literal segments match regardless of case", func(t *testing.T) {
		for _, path := range []string{"/news/list", "/News/list", "/NEWS/list"} {
			routeData, err := table.GetRouteData(routeRequest(path))

			req := require.New(t)
			req.NoError(err, path)
			req.NotNil(routeData, path)
			req.Equal("news", routeData.RouteName, path)
			req.Equal(map[string]string{RouteKeyController: "news", RouteKeyAction: "list"}, routeData.Values, path)
		}
	})

	t.Run("literal segments are matched as text", func(t *testing.T) {
		req := require.New(t)

		routeData, err := table.GetRouteData(routeRequest("/Feed.RSS"))
		req.NoError(err)
		req.NotNil(routeData)
		req.Equal("rss", routeData.Get(RouteKeyAction))

		routeData, err = table.GetRouteData(routeRequest("/feedxrss"))
		req.NoError(err)
		req.Nil(routeData)
	})

	t.Run("generated paths keep the declared literal", func(t *testing.T) {
		path, err := table.VirtualPath(map[string]string{RouteKeyController: "News", RouteKeyAction: "List"})

		req := require.New(t)
		req.NoError(err)
		req.Equal("/news/list", path)
	})

	t.Run("a mixed case module url is dispatched", func(t *testing.T) {
		module := newMockModule(t, "News", mockConstructor("news", func(handler *mockHandler) {
			handler.HandleAction("list", func(context.Context, *HandlerContext) (ActionResult, error) {
				return Content("latest"), nil
			})
		}))
		module.Routes = table
		executor := newMockExecutor(t, module)

		invoked, err := executor.InvokeAction(context.Background(), newMockPage(http.MethodGet, "/page"), nil, "News/List", &ModulePlacement{ModuleName: "News"})

		req := require.New(t)
		req.NoError(err)
		req.Equal("news", invoked.HandlerContext.HandlerName)
		req.Equal("List", invoked.HandlerContext.ActionName)
	})
}

func Test_MuxRouteTable_VirtualPath(t *testing.T) {
	table, err := NewMuxRouteTableFromRoutes(
		&Route{
			Name:     "archive",
			Url:      "archive/{year}",
			Defaults: map[string]string{RouteKeyController: "news", RouteKeyAction: "archive"},
		},
		defaultRoute(),
	)
	require.NoError(t, err)

	tests := []struct {
		name   string
		values map[string]string
		path   string
	}{
		{
			name:   "all values are rendered and lowercased",
			values: map[string]string{RouteKeyController: "Banner", RouteKeyAction: "Show", "id": "7"},
			path:   "/banner/show/7",
		},
		{
			name:   "values equal to their defaults are dropped",
			values: map[string]string{RouteKeyController: "Home", RouteKeyAction: "Index"},
			path:   "/",
		},
		{
			name:   "the shortest form is used",
			values: map[string]string{RouteKeyController: "banner", RouteKeyAction: "list"},
			path:   "/banner/list",
		},
		{
			name:   "unused values become the query string",
			values: map[string]string{RouteKeyController: "banner", RouteKeyAction: "list", "page": "2", "size": "10"},
			path:   "/banner/list?page=2&size=10",
		},
		{
			name:   "fixed defaults select a route",
			values: map[string]string{RouteKeyController: "news", RouteKeyAction: "archive", "year": "2020"},
			path:   "/archive/2020",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path, err := table.VirtualPath(test.values)

			req := require.New(t)
			req.NoError(err)
			req.Equal(test.path, path)
		})
	}

	t.Run("a generated path routes back to the same values", func(t *testing.T) {
		values := map[string]string{RouteKeyController: "banner", RouteKeyAction: "show", "id": "9"}
		path, err := table.VirtualPath(values)
		req := require.New(t)
		req.NoError(err)

		routeData, err := table.GetRouteData(routeRequest(path))
		req.NoError(err)
		req.Equal(values, routeData.Values)
	})

	t.Run("case is kept when lowercase urls are disabled", func(t *testing.T) {
		mixed, err := NewMuxRouteTableFromRoutes(defaultRoute())
		req := require.New(t)
		req.NoError(err)
		mixed.LowercaseUrls = false

		path, err := mixed.VirtualPath(map[string]string{RouteKeyController: "Banner", RouteKeyAction: "Show"})
		req.NoError(err)
		req.Equal("/Banner/Show", path)
	})

	t.Run("values no route can produce are an error", func(t *testing.T) {
		strict, err := NewMuxRouteTableFromRoutes(&Route{Name: "strict", Url: "{controller}/{action}"})
		req := require.New(t)
		req.NoError(err)

		_, err = strict.VirtualPath(map[string]string{RouteKeyController: "banner"})
		req.Error(err)
	})
}

func Test_Route_Parse(t *testing.T) {
	t.Run("routes are parsed from configuration maps", func(t *testing.T) {
		routes, err := ParseRoutes([]interface{}{
			map[string]interface{}{
				"name": "default",
				"url":  "{controller}/{action}/{id}",
				"defaults": map[string]interface{}{
					"controller": "home",
					"action":     "index",
					"id":         nil,
				},
			},
		})

		req := require.New(t)
		req.NoError(err)
		req.Len(routes, 1)
		req.Equal("default", routes[0].Name)
		req.Equal(map[string]string{"controller": "home", "action": "index", "id": ""}, routes[0].Defaults)
	})

	t.Run("a route requires a name", func(t *testing.T) {
		_, err := ParseRoutes([]interface{}{map[interface{}]interface{}{"url": "{controller}"}})
		require.Error(t, err)
	})

	t.Run("duplicate variables are rejected", func(t *testing.T) {
		_, err := ParseRoutes([]interface{}{map[interface{}]interface{}{"name": "bad", "url": "{id}/{id}"}})
		require.Error(t, err)
	})

	t.Run("entries must be maps", func(t *testing.T) {
		_, err := ParseRoutes([]interface{}{"default"})
		require.Error(t, err)
	})
}

func Test_RouteData_GetRequiredString(t *testing.T) {
	routeData := &RouteData{RouteName: "default", Values: map[string]string{RouteKeyController: "banner"}}

	req := require.New(t)
	controller, err := routeData.GetRequiredString(RouteKeyController)
	req.NoError(err)
	req.Equal("banner", controller)

	_, err = routeData.GetRequiredString(RouteKeyAction)
	req.Error(err)
	req.Contains(err.Error(), RouteKeyAction)

	var missing *RouteData
	_, err = missing.GetRequiredString(RouteKeyAction)
	req.Error(err)
}
