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
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// ValueProvider is a source of named input values for handler actions.
type ValueProvider interface {
	GetValue(key string) ([]string, bool)
}

// ValueProviderFunc adapts a function into a ValueProvider.
type ValueProviderFunc func(key string) ([]string, bool)

func (f ValueProviderFunc) GetValue(key string) ([]string, bool) {
	return f(key)
}

// ValuesProvider serves values from url.Values, e.g. a form or a query string.
type ValuesProvider struct {
	values url.Values
}

func NewValuesProvider(values url.Values) *ValuesProvider {
	return &ValuesProvider{values: values}
}

func (provider *ValuesProvider) GetValue(key string) ([]string, bool) {
	if provider == nil || provider.values == nil {
		return nil, false
	}
	values, ok := provider.values[key]
	return values, ok
}

// RouteValueProvider serves route values.
type RouteValueProvider struct {
	routeData *RouteData
}

func NewRouteValueProvider(routeData *RouteData) *RouteValueProvider {
	return &RouteValueProvider{routeData: routeData}
}

func (provider *RouteValueProvider) GetValue(key string) ([]string, bool) {
	if provider == nil || provider.routeData == nil {
		return nil, false
	}
	value, ok := provider.routeData.Values[key]
	if !ok {
		return nil, false
	}
	return []string{value}, true
}

// ValueProviderCollection is an ordered chain of providers: the first provider that supplies a key wins.
type ValueProviderCollection []ValueProvider

var _ ValueProvider = ValueProviderCollection{}

func (collection ValueProviderCollection) GetValue(key string) ([]string, bool) {
	for _, provider := range collection {
		if provider == nil {
			continue
		}
		if values, ok := provider.GetValue(key); ok {
			return values, true
		}
	}
	return nil, false
}

// GetString returns the first value for key or an empty string.
func (collection ValueProviderCollection) GetString(key string) string {
	values, ok := collection.GetValue(key)
	if !ok || len(values) == 0 {
		return ""
	}
	return values[0]
}

// GetInt returns the first value for key parsed as an int.
func (collection ValueProviderCollection) GetInt(key string) (int, error) {
	value := collection.GetString(key)
	if value == "" {
		return 0, errors.Errorf("no value for [%s]", key)
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "value for [%s] is not an integer", key)
	}
	return result, nil
}

// newModuleValueProvider builds the binding chain of a module handler in fixed priority: module form, module query
// string, route values, page query string, page value provider.
func newModuleValueProvider(httpContext *ModuleHttpContext, routeData *RouteData, page *PageContext) ValueProviderCollection {
	collection := ValueProviderCollection{
		NewValuesProvider(httpContext.Request.PostForm),
		NewValuesProvider(httpContext.Request.URL.Query()),
		NewRouteValueProvider(routeData),
	}

	if page != nil {
		if page.AllQueryString != nil {
			collection = append(collection, NewValuesProvider(page.AllQueryString))
		}
		if page.ValueProvider != nil {
			collection = append(collection, page.ValueProvider)
		}
	}

	return collection
}
