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
	"strings"

	"github.com/pkg/errors"
)

const (
	VirtualRootMarker = "~"
	VirtualRoot       = VirtualRootMarker + "/"
)

// NormalizeModuleUrl returns moduleUrl in the form "~/relative/path". An empty URL is the virtual root.
func NormalizeModuleUrl(moduleUrl string) string {
	moduleUrl = strings.TrimSpace(moduleUrl)
	moduleUrl = strings.TrimPrefix(moduleUrl, VirtualRootMarker)
	return VirtualRoot + strings.TrimLeft(moduleUrl, "/")
}

// UrlHelper generates module-relative URLs through a module RouteTable. RouteData holds the ambient values of the
// current module request; its controller is used when none is given.
type UrlHelper struct {
	Routes    RouteTable
	RouteData *RouteData
}

// Action returns the path routing to action of controller with values, e.g. "/banner/show/7".
func (helper *UrlHelper) Action(action, controller string, values map[string]interface{}) (string, error) {
	if helper == nil || helper.Routes == nil {
		return "", errors.New("url helper has no route table")
	}

	routeValues := map[string]string{}
	for key, value := range values {
		if value == nil {
			continue
		}
		routeValues[key] = fmt.Sprint(value)
	}

	if controller == "" {
		controller = helper.RouteData.Get(RouteKeyController)
	}
	if action == "" {
		action = helper.RouteData.Get(RouteKeyAction)
	}
	if controller != "" {
		routeValues[RouteKeyController] = controller
	}
	if action != "" {
		routeValues[RouteKeyAction] = action
	}

	return helper.Routes.VirtualPath(routeValues)
}

// ModuleUrl is Action in virtual form, e.g. "~/banner/show/7", suitable as the module URL of a placement.
func (helper *UrlHelper) ModuleUrl(action, controller string, values map[string]interface{}) (string, error) {
	path, err := helper.Action(action, controller, values)
	if err != nil {
		return "", err
	}
	return NormalizeModuleUrl(path), nil
}

// GetEntryUrl resolves entry into a URL of the module. A synthetic request rooted at the virtual root is routed
// through the module's RouteTable to provide ambient values, then the same RouteTable reverses the entry, so the
// result is always routable by the table that later dispatches it.
func GetEntryUrl(ctx context.Context, page *http.Request, moduleContext *ModuleContext, entry *Entry) (string, error) {
	routes := moduleContext.RouteTable()
	if routes == nil {
		return "", errors.Errorf("module [%s] has no route table", moduleContext.ModuleName)
	}

	rootRequest, err := newModuleRequest(ctx, page, VirtualRoot, "")
	if err != nil {
		return "", err
	}

	routeData, err := routes.GetRouteData(rootRequest)
	if err != nil {
		return "", errors.Wrapf(err, "could not route the virtual root of module [%s]", moduleContext.ModuleName)
	}

	helper := &UrlHelper{
		Routes:    routes,
		RouteData: routeData,
	}

	entryUrl, err := helper.Action(entry.Action, entry.Controller, entry.Values)
	if err != nil {
		return "", errors.Wrapf(err, "could not resolve entry [%s/%s] of module [%s]", entry.Controller, entry.Action, moduleContext.ModuleName)
	}

	return VirtualRootMarker + entryUrl, nil
}

// resolveModuleUrl applies the module URL precedence: explicit URL, placement entry, settings entry, virtual root.
func resolveModuleUrl(ctx context.Context, page *http.Request, moduleContext *ModuleContext, moduleUrl string) (string, error) {
	if strings.TrimSpace(moduleUrl) == "" {
		entry := moduleContext.Placement.Entry
		if entry == nil {
			settings, err := moduleContext.Settings()
			if err != nil {
				return "", err
			}
			if settings != nil {
				entry = settings.Entry
			}
		}

		if entry != nil {
			entryUrl, err := GetEntryUrl(ctx, page, moduleContext, entry)
			if err != nil {
				return "", err
			}
			moduleUrl = entryUrl
		}
	}

	return NormalizeModuleUrl(moduleUrl), nil
}
