// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeStore PluginType = 1
)

// EnvPrefix is the prefix of plugin option environment variables
const EnvPrefix = "SUPERDAO_"

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeStore:
		return "store"
	default:
		return ""
	}
}

type PluginEntry struct {
	NewFromOptionsFunc func(Environment) Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var pluginEntries []PluginEntry

// Register adds a plugin to the registry. It is called from plugin package
// init functions.
func Register(pluginEntry PluginEntry) {
	pluginEntries = append(pluginEntries, pluginEntry)
}

func GetPlugins(pluginType PluginType) []PluginEntry {
	ret := []PluginEntry{}
	for _, plugin := range pluginEntries {
		if plugin.Type == pluginType {
			ret = append(ret, plugin)
		}
	}
	return ret
}

// GetPlugin creates a new instance of the named plugin, or returns nil if
// no such plugin is registered
func GetPlugin(pluginType PluginType, pluginName string, env Environment) Plugin {
	for _, plugin := range pluginEntries {
		if plugin.Type == pluginType && plugin.Name == pluginName {
			return plugin.NewFromOptionsFunc(env)
		}
	}
	return nil
}

// PopulateCmdlineOptions adds a flag for every option of every registered
// plugin, named <type>-<plugin>-<option>
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	for _, plugin := range pluginEntries {
		for i := range plugin.Options {
			if err := plugin.Options[i].AddToFlagSet(
				fs,
				PluginTypeName(plugin.Type),
				plugin.Name,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessEnvVars applies option values from environment variables named
// SUPERDAO_<TYPE>_<PLUGIN>_<OPTION>
func ProcessEnvVars() error {
	for _, plugin := range pluginEntries {
		prefix := EnvPrefix + strings.ToUpper(
			fmt.Sprintf("%s_%s_", PluginTypeName(plugin.Type), plugin.Name),
		)
		for i := range plugin.Options {
			if err := plugin.Options[i].ProcessEnvVars(prefix); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessConfig applies option values from the plugins section of the
// config file, keyed by plugin type, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for _, plugin := range pluginEntries {
		typeConfig, ok := pluginConfig[PluginTypeName(plugin.Type)]
		if !ok {
			continue
		}
		options, ok := typeConfig[plugin.Name]
		if !ok {
			continue
		}
		for i := range plugin.Options {
			if err := plugin.Options[i].ProcessConfig(options); err != nil {
				return fmt.Errorf("plugin %s: %w", plugin.Name, err)
			}
		}
	}
	return nil
}
