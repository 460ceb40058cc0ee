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
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigSection = "modules"
	EnvPrefix            = "XMODULE_"
	RoutesFileName       = "routes.yaml"
	MinTempDataKeyLength = 32
)

// ExecutorConfig holds the options used to build an Executor and the module route tables. Values are applied in
// order: Default, ParseEnv, Parse.
type ExecutorConfig struct {
	// SettingsRoot is the directory holding one folder per module with its settings.yaml and routes.yaml.
	SettingsRoot string `env:"SETTINGS_ROOT"`
	// LowercaseUrls lowercases controller and action segments of generated module URLs.
	LowercaseUrls bool `env:"LOWERCASE_URLS"`
	// SecureTempData marks module temp data cookies Secure.
	SecureTempData bool `env:"SECURE_TEMPDATA"`
	// TempDataKey signs module temp data cookies. When empty a random key is generated per process.
	TempDataKey string `env:"TEMPDATA_KEY"`

	MetricsEnabled   bool   `env:"METRICS_ENABLED"`
	MetricsNamespace string `env:"METRICS_NAMESPACE"`
}

// Default provides defaults for all necessary values
func (config *ExecutorConfig) Default() {
	config.LowercaseUrls = true
	config.MetricsEnabled = true
	config.MetricsNamespace = DefaultMetricsNamespace
}

// ParseEnv overrides values from XMODULE_ prefixed environment variables.
func (config *ExecutorConfig) ParseEnv() error {
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.Wrap(err, "error parsing environment")
	}
	return nil
}

// Parse parses a configuration map
func (config *ExecutorConfig) Parse(configMap map[interface{}]interface{}) error {
	if interfaceVal, ok := configMap["settingsRoot"]; ok {
		if settingsRoot, ok := interfaceVal.(string); ok {
			config.SettingsRoot = settingsRoot
		} else {
			return errors.New("could not use value for settingsRoot, not a string")
		}
	}

	if interfaceVal, ok := configMap["lowercaseUrls"]; ok {
		if lowercaseUrls, ok := interfaceVal.(bool); ok {
			config.LowercaseUrls = lowercaseUrls
		} else {
			return errors.New("could not use value for lowercaseUrls, not a boolean")
		}
	}

	if interfaceVal, ok := configMap["secureTempData"]; ok {
		if secure, ok := interfaceVal.(bool); ok {
			config.SecureTempData = secure
		} else {
			return errors.New("could not use value for secureTempData, not a boolean")
		}
	}

	if interfaceVal, ok := configMap["tempDataKey"]; ok {
		if key, ok := interfaceVal.(string); ok {
			config.TempDataKey = key
		} else {
			return errors.New("could not use value for tempDataKey, not a string")
		}
	}

	if interfaceVal, ok := configMap["metrics"]; ok {
		metricsMap, ok := toConfigMap(interfaceVal)
		if !ok {
			return errors.New("metrics section must be a map if defined")
		}

		if enabledVal, ok := metricsMap["enabled"]; ok {
			if enabled, ok := enabledVal.(bool); ok {
				config.MetricsEnabled = enabled
			} else {
				return errors.New("could not use value for metrics.enabled, not a boolean")
			}
		}

		if namespaceVal, ok := metricsMap["namespace"]; ok {
			if namespace, ok := namespaceVal.(string); ok {
				config.MetricsNamespace = namespace
			} else {
				return errors.New("could not use value for metrics.namespace, not a string")
			}
		}
	}

	return nil
}

// Validate validates the configuration values and returns nil or error
func (config *ExecutorConfig) Validate() error {
	if config.SettingsRoot != "" {
		info, err := os.Stat(config.SettingsRoot)
		if err != nil {
			return fmt.Errorf("invalid settingsRoot [%s]: %v", config.SettingsRoot, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("invalid settingsRoot [%s]: not a directory", config.SettingsRoot)
		}
	}

	if config.TempDataKey != "" && len(config.TempDataKey) < MinTempDataKeyLength {
		return fmt.Errorf("tempDataKey must be at least %d bytes", MinTempDataKeyLength)
	}

	if config.MetricsEnabled && config.MetricsNamespace == "" {
		return errors.New("metrics namespace must not be empty when metrics are enabled")
	}

	return nil
}

// NewRouteTable creates a MuxRouteTable honoring LowercaseUrls.
func (config *ExecutorConfig) NewRouteTable(routes ...*Route) (*MuxRouteTable, error) {
	table, err := NewMuxRouteTableFromRoutes(routes...)
	if err != nil {
		return nil, err
	}
	table.LowercaseUrls = config.LowercaseUrls
	return table, nil
}

// LoadModule builds a ModuleArea whose route table is read from <SettingsRoot>/<name>/routes.yaml, a yaml array of
// route maps (name, url, defaults).
func (config *ExecutorConfig) LoadModule(name string, handlers HandlerFactory) (*ModuleArea, error) {
	if config.SettingsRoot == "" {
		return nil, errors.Errorf("cannot load module [%s], settingsRoot not configured", name)
	}

	path := filepath.Join(config.SettingsRoot, name, RoutesFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read routes of module [%s]", name)
	}

	var routesConfig []interface{}
	if err = yaml.Unmarshal(data, &routesConfig); err != nil {
		return nil, errors.Wrapf(err, "could not parse routes of module [%s]", name)
	}

	routes, err := ParseRoutes(routesConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid routes of module [%s]", name)
	}

	table, err := config.NewRouteTable(routes...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not build route table of module [%s]", name)
	}

	return &ModuleArea{
		Name:     name,
		Routes:   table,
		Handlers: handlers,
	}, nil
}

// LoadConfig parses, applies environment overrides and validates the DefaultConfigSection of a configuration map.
func LoadConfig(configMap map[interface{}]interface{}) (*ExecutorConfig, error) {
	config := &ExecutorConfig{}
	config.Default()

	if err := config.ParseEnv(); err != nil {
		return nil, err
	}

	if sectionVal, ok := configMap[DefaultConfigSection]; ok {
		sectionMap, ok := toConfigMap(sectionVal)
		if !ok {
			return nil, fmt.Errorf("%s section must be a map", DefaultConfigSection)
		}
		if err := config.Parse(sectionMap); err != nil {
			return nil, fmt.Errorf("error parsing %s section: %v", DefaultConfigSection, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
