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
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const SettingsFileName = "settings.yaml"

// ModuleSettings are the persisted, read-only settings of a module.
type ModuleSettings struct {
	Entry          *Entry            `yaml:"entry,omitempty"`
	ThemeName      string            `yaml:"themeName,omitempty"`
	CustomSettings map[string]string `yaml:"customSettings,omitempty"`
}

// SettingsProvider returns the settings of a module as seen from a site. Returning nil settings and a nil error
// means the module has no settings.
type SettingsProvider interface {
	GetSettings(site *Site, moduleName string) (*ModuleSettings, error)
}

// SettingsMap is a SettingsProvider backed by a simple mapping of module name to ModuleSettings. Site specific
// settings are keyed by "<site>/<module>" and take precedence.
type SettingsMap map[string]*ModuleSettings

var _ SettingsProvider = SettingsMap{}

func (settings SettingsMap) GetSettings(site *Site, moduleName string) (*ModuleSettings, error) {
	if site != nil && site.Name != "" {
		if siteSettings, ok := settings[site.Name+"/"+moduleName]; ok {
			return siteSettings, nil
		}
	}
	return settings[moduleName], nil
}

// FileSettingsProvider reads module settings from yaml files laid out as
//
//	<Root>/<module>/settings.yaml
//	<Root>/<module>/sites/<site>/settings.yaml
//
// A site file replaces the module file entirely. Files are read on every call, settings are not cached.
type FileSettingsProvider struct {
	Root string
}

var _ SettingsProvider = &FileSettingsProvider{}

func (provider *FileSettingsProvider) GetSettings(site *Site, moduleName string) (*ModuleSettings, error) {
	if !isPathSegment(moduleName) {
		return nil, errors.Errorf("invalid module name [%s]", moduleName)
	}

	moduleDir := filepath.Join(provider.Root, moduleName)

	if site != nil && site.Name != "" {
		if !isPathSegment(site.Name) {
			return nil, errors.Errorf("invalid site name [%s]", site.Name)
		}
		sitePath := filepath.Join(moduleDir, "sites", site.Name, SettingsFileName)
		if settings, err := readSettingsFile(sitePath); err != nil || settings != nil {
			return settings, err
		}
	}

	return readSettingsFile(filepath.Join(moduleDir, SettingsFileName))
}

// isPathSegment reports whether name can be joined below a directory without leaving it.
func isPathSegment(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func readSettingsFile(path string) (*ModuleSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "could not read module settings [%s]", path)
	}

	settings := &ModuleSettings{}
	if err = yaml.Unmarshal(data, settings); err != nil {
		return nil, errors.Wrapf(err, "could not parse module settings [%s]", path)
	}

	if settings.Entry != nil {
		if err = settings.Entry.Validate(); err != nil {
			return nil, errors.Wrapf(err, "invalid module settings [%s]", path)
		}
	}

	return settings, nil
}
