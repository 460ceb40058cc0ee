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

	"github.com/pkg/errors"
)

// Entry describes the default destination of a module when no explicit module URL is given: the handler group
// (controller), the action and the route values to reverse through the module's RouteTable.
type Entry struct {
	Action     string                 `yaml:"action"`
	Controller string                 `yaml:"controller"`
	Values     map[string]interface{} `yaml:"values,omitempty"`
}

// Parse the configuration map for an Entry.
func (entry *Entry) Parse(entryMap map[interface{}]interface{}) error {
	if actionInterface, ok := entryMap["action"]; ok {
		if action, ok := actionInterface.(string); ok {
			entry.Action = action
		} else {
			return errors.New("action must be a string")
		}
	}

	if controllerInterface, ok := entryMap["controller"]; ok {
		if controller, ok := controllerInterface.(string); ok {
			entry.Controller = controller
		} else {
			return errors.New("controller must be a string")
		}
	}

	if valuesInterface, ok := entryMap["values"]; ok {
		valuesMap, ok := toConfigMap(valuesInterface)
		if !ok {
			return errors.New("values if declared must be a map")
		}
		entry.Values = map[string]interface{}{}
		for key, value := range valuesMap {
			entry.Values[fmt.Sprint(key)] = value
		}
	}

	return nil
}

// Validate this configuration object.
func (entry *Entry) Validate() error {
	if entry.Action == "" {
		return errors.New("entry action must be specified")
	}
	return nil
}

// RouteValues flattens the entry into string route values, including the controller and action.
func (entry *Entry) RouteValues() map[string]string {
	values := map[string]string{}
	for key, value := range entry.Values {
		if value == nil {
			continue
		}
		values[key] = fmt.Sprint(value)
	}
	if entry.Controller != "" {
		values[RouteKeyController] = entry.Controller
	}
	if entry.Action != "" {
		values[RouteKeyAction] = entry.Action
	}
	return values
}

// ModulePlacement is the host page's declaration of a module: the position it occupies, the module it renders, an
// optional Entry and the failure policy. A placement is immutable for the duration of a render pass.
type ModulePlacement struct {
	PositionId string
	ModuleName string
	Entry      *Entry

	// SkipError contains failures of this module: a failed module is omitted (or rendered blank) instead of failing
	// the whole page.
	SkipError bool
}

// Parse the configuration map for a ModulePlacement.
func (placement *ModulePlacement) Parse(placementMap map[interface{}]interface{}) error {
	if positionInterface, ok := placementMap["positionId"]; ok {
		if positionId, ok := positionInterface.(string); ok {
			placement.PositionId = positionId
		} else {
			return errors.New("positionId must be a string")
		}
	}

	if moduleInterface, ok := placementMap["moduleName"]; ok {
		if moduleName, ok := moduleInterface.(string); ok {
			placement.ModuleName = moduleName
		} else {
			return errors.New("moduleName must be a string")
		}
	} else {
		return errors.New("moduleName is required")
	}

	if skipInterface, ok := placementMap["skipError"]; ok {
		if skipError, ok := skipInterface.(bool); ok {
			placement.SkipError = skipError
		} else {
			return errors.New("skipError must be a boolean")
		}
	}

	if entryInterface, ok := placementMap["entry"]; ok {
		entryMap, ok := toConfigMap(entryInterface)
		if !ok {
			return errors.New("entry if declared must be a map")
		}
		entry := &Entry{}
		if err := entry.Parse(entryMap); err != nil {
			return errors.Wrap(err, "error parsing entry")
		}
		placement.Entry = entry
	} //no else optional

	return nil
}

// Validate this configuration object.
func (placement *ModulePlacement) Validate() error {
	if placement.ModuleName == "" {
		return errors.New("moduleName must be specified")
	}

	if placement.Entry != nil {
		if err := placement.Entry.Validate(); err != nil {
			return errors.Wrapf(err, "invalid entry for module [%s]", placement.ModuleName)
		}
	}

	return nil
}

// ParsePlacements parses and validates an array of placement configuration maps, as found in a host page layout.
func ParsePlacements(config []interface{}) ([]*ModulePlacement, error) {
	var placements []*ModulePlacement
	for i, placementInterface := range config {
		placementMap, ok := toConfigMap(placementInterface)
		if !ok {
			return nil, fmt.Errorf("error parsing placement configuration at index [%d]: not a map", i)
		}

		placement := &ModulePlacement{}
		if err := placement.Parse(placementMap); err != nil {
			return nil, fmt.Errorf("error parsing placement configuration at index [%d]: %v", i, err)
		}

		if err := placement.Validate(); err != nil {
			return nil, fmt.Errorf("invalid placement at index [%d]: %v", i, err)
		}

		placements = append(placements, placement)
	}
	return placements, nil
}

// toConfigMap accepts both yaml.v2 style (interface keyed) and yaml.v3/json style (string keyed) maps.
func toConfigMap(val interface{}) (map[interface{}]interface{}, bool) {
	switch typed := val.(type) {
	case map[interface{}]interface{}:
		return typed, true
	case map[string]interface{}:
		result := make(map[interface{}]interface{}, len(typed))
		for key, value := range typed {
			result[key] = value
		}
		return result, true
	}
	return nil, false
}
