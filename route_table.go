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
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
)

const (
	RouteKeyController = "controller"
	RouteKeyAction     = "action"
)

// RouteData is the result of routing a module request: the name of the matched route and its values, defaults
// included.
type RouteData struct {
	RouteName string
	Values    map[string]string
}

// Get returns a route value or an empty string.
func (routeData *RouteData) Get(key string) string {
	if routeData == nil {
		return ""
	}
	return routeData.Values[key]
}

// GetRequiredString returns a route value that must be present and non-empty, e.g. "controller" or "action".
func (routeData *RouteData) GetRequiredString(key string) (string, error) {
	if value := routeData.Get(key); value != "" {
		return value, nil
	}
	name := ""
	if routeData != nil {
		name = routeData.RouteName
	}
	return "", errors.Errorf("the route data of route [%s] must contain an item named [%s] with a non-empty string value", name, key)
}

// RouteTable is the routing collaborator of a module. GetRouteData resolves a module request, returning nil route
// data when no route matches. VirtualPath is the reverse operation: it returns the module-relative path that routes
// to the given values or an error if no route can produce it.
type RouteTable interface {
	GetRouteData(r *http.Request) (*RouteData, error)
	VirtualPath(values map[string]string) (string, error)
}

// Route is the definition of a route: a URL template with {var} or {var:regexp} segments and default values.
// Trailing variables that have a default are optional. An empty default marks an optional variable that is omitted
// from route data when absent. Defaults for keys that are not template variables act as fixed values.
type Route struct {
	Name     string
	Url      string
	Defaults map[string]string
}

// Parse the configuration map for a Route.
func (route *Route) Parse(routeMap map[interface{}]interface{}) error {
	if nameInterface, ok := routeMap["name"]; ok {
		if name, ok := nameInterface.(string); ok {
			route.Name = name
		} else {
			return errors.New("name must be a string")
		}
	} else {
		return errors.New("name is required")
	}

	if urlInterface, ok := routeMap["url"]; ok {
		if urlTemplate, ok := urlInterface.(string); ok {
			route.Url = urlTemplate
		} else {
			return errors.New("url must be a string")
		}
	} else {
		return errors.New("url is required")
	}

	if defaultsInterface, ok := routeMap["defaults"]; ok {
		defaultsMap, ok := toConfigMap(defaultsInterface)
		if !ok {
			return errors.New("defaults if declared must be a map")
		}
		route.Defaults = map[string]string{}
		for key, value := range defaultsMap {
			if value == nil {
				route.Defaults[fmt.Sprint(key)] = ""
			} else {
				route.Defaults[fmt.Sprint(key)] = fmt.Sprint(value)
			}
		}
	}

	return nil
}

// Validate this configuration object.
func (route *Route) Validate() error {
	if route.Name == "" {
		return errors.New("route name must be specified")
	}
	if _, err := parseRouteTemplate(route.Url); err != nil {
		return errors.Wrapf(err, "invalid url for route [%s]", route.Name)
	}
	return nil
}

// ParseRoutes parses and validates an array of route configuration maps.
func ParseRoutes(config []interface{}) ([]*Route, error) {
	var routes []*Route
	for i, routeInterface := range config {
		routeMap, ok := toConfigMap(routeInterface)
		if !ok {
			return nil, fmt.Errorf("error parsing route configuration at index [%d]: not a map", i)
		}
		route := &Route{}
		if err := route.Parse(routeMap); err != nil {
			return nil, fmt.Errorf("error parsing route configuration at index [%d]: %v", i, err)
		}
		if err := route.Validate(); err != nil {
			return nil, fmt.Errorf("invalid route at index [%d]: %v", i, err)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

type templateSegment struct {
	text     string
	variable string
}

func parseRouteTemplate(template string) ([]templateSegment, error) {
	template = strings.Trim(strings.TrimPrefix(template, "~"), "/")
	if template == "" {
		return nil, nil
	}

	var segments []templateSegment
	seen := map[string]bool{}
	for _, part := range strings.Split(template, "/") {
		if part == "" {
			return nil, errors.Errorf("empty segment in url template [%s]", template)
		}
		segment := templateSegment{text: part}
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := strings.TrimSuffix(strings.TrimPrefix(part, "{"), "}")
			if idx := strings.Index(name, ":"); idx >= 0 {
				name = name[:idx]
			}
			if name == "" {
				return nil, errors.Errorf("unnamed variable in url template [%s]", template)
			}
			if seen[name] {
				return nil, errors.Errorf("duplicate variable [%s] in url template [%s]", name, template)
			}
			seen[name] = true
			segment.variable = name
		}
		segments = append(segments, segment)
	}
	return segments, nil
}

type routeEntry struct {
	route *Route
	// variables that are not part of the full template but have a default
	fixed    map[string]string
	variants []*routeVariant // shortest first
}

type routeVariant struct {
	entry    *routeEntry
	path     *mux.Route
	vars     []string
	dropped  []string
	template string
	// mux variable name and text of each literal segment
	literals []string
}

// literalVarPrefix names the mux variables that match literal segments case-insensitively.
const literalVarPrefix = "xmodule_lit"

// literalPart returns the mux template of a literal segment, matched case-insensitively.
func literalPart(index int, text string) (string, string, bool) {
	if strings.ContainsAny(text, "{}") {
		return "", text, false
	}
	name := fmt.Sprintf("%s%d", literalVarPrefix, index)
	return name, "{" + name + ":(?i)" + regexp.QuoteMeta(text) + "}", true
}

// MuxRouteTable is a RouteTable backed by a gorilla/mux router. Routes are matched in the order they were added.
type MuxRouteTable struct {
	// LowercaseUrls lowercases the controller and action values of generated paths.
	LowercaseUrls bool

	router   *mux.Router
	entries  []*routeEntry
	variants map[*mux.Route]*routeVariant
}

var _ RouteTable = &MuxRouteTable{}

// NewMuxRouteTable creates an empty MuxRouteTable that generates lowercase URLs.
func NewMuxRouteTable() *MuxRouteTable {
	return &MuxRouteTable{
		LowercaseUrls: true,
		router:        mux.NewRouter(),
		variants:      map[*mux.Route]*routeVariant{},
	}
}

// NewMuxRouteTableFromRoutes creates a MuxRouteTable and adds all routes in order.
func NewMuxRouteTableFromRoutes(routes ...*Route) (*MuxRouteTable, error) {
	table := NewMuxRouteTable()
	for _, route := range routes {
		if err := table.Add(route); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// Add registers a route. Each optional trailing variable produces an additional, shorter mux route.
func (table *MuxRouteTable) Add(route *Route) error {
	if err := route.Validate(); err != nil {
		return err
	}

	segments, _ := parseRouteTemplate(route.Url)

	entry := &routeEntry{
		route: route,
		fixed: map[string]string{},
	}

	templateVars := map[string]bool{}
	for _, segment := range segments {
		if segment.variable != "" {
			templateVars[segment.variable] = true
		}
	}
	for key, value := range route.Defaults {
		if !templateVars[key] {
			entry.fixed[key] = value
		}
	}

	optional := 0
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].variable == "" {
			break
		}
		if _, ok := route.Defaults[segments[i].variable]; !ok {
			break
		}
		optional++
	}

	for keep := len(segments) - optional; keep <= len(segments); keep++ {
		variant := &routeVariant{entry: entry}
		var parts []string
		for i, segment := range segments {
			if i < keep {
				if segment.variable != "" {
					parts = append(parts, segment.text)
					variant.vars = append(variant.vars, segment.variable)
				} else if name, part, ok := literalPart(i, segment.text); ok {
					parts = append(parts, part)
					variant.literals = append(variant.literals, name, segment.text)
				} else {
					parts = append(parts, segment.text)
				}
			} else {
				variant.dropped = append(variant.dropped, segment.variable)
			}
		}
		variant.template = "/" + strings.Join(parts, "/")
		entry.variants = append(entry.variants, variant)
	}

	// longest first so that a full match is preferred when both could apply
	for i := len(entry.variants) - 1; i >= 0; i-- {
		variant := entry.variants[i]
		variant.path = table.router.NewRoute().Path(variant.template)
		if err := variant.path.GetError(); err != nil {
			return errors.Wrapf(err, "could not register route [%s] with template [%s]", route.Name, variant.template)
		}
		table.variants[variant.path] = variant
	}

	table.entries = append(table.entries, entry)
	pfxlog.Logger().Debugf("added xmodule route [%s] with url [%s] (%d variants)", route.Name, route.Url, len(entry.variants))

	return nil
}

// GetRouteData matches the request path against the registered routes. Literal segments match regardless of case.
func (table *MuxRouteTable) GetRouteData(r *http.Request) (*RouteData, error) {
	if r == nil || r.URL == nil {
		return nil, errors.New("cannot route a nil request")
	}

	match := &mux.RouteMatch{}
	if !table.router.Match(r, match) || match.Route == nil {
		return nil, nil
	}

	variant, ok := table.variants[match.Route]
	if !ok {
		return nil, errors.Errorf("matched an unknown route for path [%s]", r.URL.Path)
	}

	values := map[string]string{}
	for key, value := range variant.entry.route.Defaults {
		if value != "" {
			values[key] = value
		}
	}
	for key, value := range match.Vars {
		if strings.HasPrefix(key, literalVarPrefix) {
			continue
		}
		values[key] = value
	}

	return &RouteData{
		RouteName: variant.entry.route.Name,
		Values:    values,
	}, nil
}

// VirtualPath returns the path of the first route able to produce values, using its shortest form. Values that are
// not consumed by the route are appended as a query string.
func (table *MuxRouteTable) VirtualPath(values map[string]string) (string, error) {
	for _, entry := range table.entries {
		if !entry.acceptsFixed(values) {
			continue
		}
		for _, variant := range entry.variants {
			if path, ok := table.buildPath(variant, values); ok {
				return path, nil
			}
		}
	}

	return "", errors.Errorf("no route matches the values %v", values)
}

func (entry *routeEntry) acceptsFixed(values map[string]string) bool {
	for key, fixed := range entry.fixed {
		if value, ok := values[key]; ok && !strings.EqualFold(value, fixed) {
			return false
		}
	}
	return true
}

func (table *MuxRouteTable) buildPath(variant *routeVariant, values map[string]string) (string, bool) {
	defaults := variant.entry.route.Defaults

	for _, dropped := range variant.dropped {
		if value, ok := values[dropped]; ok && value != "" && !strings.EqualFold(value, defaults[dropped]) {
			return "", false
		}
	}

	used := map[string]bool{}
	var pairs []string
	for _, name := range variant.vars {
		value, ok := values[name]
		if !ok || value == "" {
			value = defaults[name]
		}
		if value == "" {
			return "", false
		}
		if table.LowercaseUrls && (name == RouteKeyController || name == RouteKeyAction) {
			value = strings.ToLower(value)
		}
		pairs = append(pairs, name, value)
		used[name] = true
	}

	pairs = append(pairs, variant.literals...)

	generated, err := variant.path.URLPath(pairs...)
	if err != nil {
		return "", false
	}

	for _, dropped := range variant.dropped {
		used[dropped] = true
	}
	for key := range variant.entry.fixed {
		used[key] = true
	}

	query := url.Values{}
	for key, value := range values {
		if !used[key] && value != "" {
			query.Set(key, value)
		}
	}

	path := generated.Path
	if path == "" {
		path = "/"
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	return path, true
}
