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
	"sync"

	"github.com/google/uuid"
)

// Site identifies the site that owns the host page.
type Site struct {
	Name string
}

// ModuleContext is the per-invocation bundle of module identity, owning site, settings and routing. One is created
// for every InvokeAction call and must not be reused across invocations.
type ModuleContext struct {
	ModuleName   string
	Site         *Site
	Placement    *ModulePlacement
	Module       *ModuleArea
	InvocationId string

	settingsProvider SettingsProvider
	settingsOnce     sync.Once
	settings         *ModuleSettings
	settingsErr      error
}

// NewModuleContext creates a fresh ModuleContext for the module described by placement.
func NewModuleContext(module *ModuleArea, site *Site, placement *ModulePlacement, settingsProvider SettingsProvider) *ModuleContext {
	return &ModuleContext{
		ModuleName:       placement.ModuleName,
		Site:             site,
		Placement:        placement,
		Module:           module,
		InvocationId:     uuid.NewString(),
		settingsProvider: settingsProvider,
	}
}

// Settings returns the module settings, loading them on first use. A module without settings returns nil, nil.
func (moduleContext *ModuleContext) Settings() (*ModuleSettings, error) {
	moduleContext.settingsOnce.Do(func() {
		if moduleContext.settingsProvider == nil {
			return
		}
		moduleContext.settings, moduleContext.settingsErr = moduleContext.settingsProvider.GetSettings(moduleContext.Site, moduleContext.ModuleName)
	})
	return moduleContext.settings, moduleContext.settingsErr
}

// RouteTable returns the module's own route table.
func (moduleContext *ModuleContext) RouteTable() RouteTable {
	if moduleContext.Module == nil {
		return nil
	}
	return moduleContext.Module.Routes
}

// PositionId returns the page position the module is rendered in, if any.
func (moduleContext *ModuleContext) PositionId() string {
	if moduleContext.Placement == nil {
		return ""
	}
	return moduleContext.Placement.PositionId
}
