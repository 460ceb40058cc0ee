/*
	Copyright NetFoundry, Inc.

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
	"strings"

	"github.com/sirupsen/logrus"
)

// ModuleArea is a deployed module: its name, its own route table and the factory creating its handlers.
type ModuleArea struct {
	Name     string
	Routes   RouteTable
	Handlers HandlerFactory
}

// ModuleRegistry describes a registry of deployed modules by name.
type ModuleRegistry interface {
	Add(module *ModuleArea) error
	Get(name string) *ModuleArea
}

// ModuleRegistryMap is a basic ModuleRegistry implementation backed by a simple mapping of lowercased module name
// to ModuleArea instances.
type ModuleRegistryMap struct {
	modules map[string]*ModuleArea
}

var _ ModuleRegistry = &ModuleRegistryMap{}

// NewModuleRegistryMap creates a new ModuleRegistryMap
func NewModuleRegistryMap() *ModuleRegistryMap {
	return &ModuleRegistryMap{
		modules: map[string]*ModuleArea{},
	}
}

// Add adds a module to the registry. Errors if a module with the same name is registered or the module is incomplete.
func (registry *ModuleRegistryMap) Add(module *ModuleArea) error {
	if module == nil || module.Name == "" {
		return fmt.Errorf("module must have a name")
	}
	if module.Routes == nil {
		return fmt.Errorf("module [%s] has no route table", module.Name)
	}
	if module.Handlers == nil {
		return fmt.Errorf("module [%s] has no handler factory", module.Name)
	}

	logrus.Debugf("adding xmodule module: %v", module.Name)
	key := strings.ToLower(module.Name)
	if _, ok := registry.modules[key]; ok {
		return fmt.Errorf("module [%s] already registered", module.Name)
	}

	registry.modules[key] = module

	return nil
}

// Get retrieves a module by name or nil if no module with that name is registered
func (registry *ModuleRegistryMap) Get(name string) *ModuleArea {
	return registry.modules[strings.ToLower(name)]
}

// HandlerFactory creates the handler for a handler group (controller) of a module request. A nil handler with a nil
// error means the group is unknown.
type HandlerFactory interface {
	CreateHandler(requestContext *RequestContext, group string) (Handler, error)
}

// HandlerConstructor creates fresh Handler instances for a single handler group identified by its binding.
type HandlerConstructor interface {
	Binding() string
	New(requestContext *RequestContext) (Handler, error)
}

// HandlerConstructorFunc adapts a function into a HandlerConstructor.
type HandlerConstructorFunc struct {
	Name        string
	Constructor func(requestContext *RequestContext) (Handler, error)
}

func (f HandlerConstructorFunc) Binding() string {
	return f.Name
}

func (f HandlerConstructorFunc) New(requestContext *RequestContext) (Handler, error) {
	return f.Constructor(requestContext)
}

// HandlerRegistry describes a registry of binding to HandlerConstructor registrations
type HandlerRegistry interface {
	HandlerFactory
	Add(constructor HandlerConstructor) error
	Get(binding string) HandlerConstructor
}

// HandlerRegistryMap is a basic HandlerRegistry implementation backed by a simple mapping of lowercased binding to
// HandlerConstructor instances. Handler group names are matched case-insensitively.
type HandlerRegistryMap struct {
	constructors map[string]HandlerConstructor
}

var _ HandlerRegistry = &HandlerRegistryMap{}

// NewHandlerRegistryMap creates a new HandlerRegistryMap
func NewHandlerRegistryMap() *HandlerRegistryMap {
	return &HandlerRegistryMap{
		constructors: map[string]HandlerConstructor{},
	}
}

// Add adds a constructor to the registry. Errors if a previous constructor with the same binding is registered.
func (registry *HandlerRegistryMap) Add(constructor HandlerConstructor) error {
	logrus.Debugf("adding xmodule handler constructor with binding: %v", constructor.Binding())
	key := strings.ToLower(constructor.Binding())
	if _, ok := registry.constructors[key]; ok {
		return fmt.Errorf("binding [%s] already registered", constructor.Binding())
	}

	registry.constructors[key] = constructor

	return nil
}

// Get retrieves a constructor based on a binding or nil if no constructor for the binding is registered
func (registry *HandlerRegistryMap) Get(binding string) HandlerConstructor {
	return registry.constructors[strings.ToLower(binding)]
}

// CreateHandler creates a new handler for group, or returns nil if the group is not registered.
func (registry *HandlerRegistryMap) CreateHandler(requestContext *RequestContext, group string) (Handler, error) {
	constructor := registry.Get(group)
	if constructor == nil {
		return nil, nil
	}
	return constructor.New(requestContext)
}
