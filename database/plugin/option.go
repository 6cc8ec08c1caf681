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
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = 1
	PluginOptionTypeBool   PluginOptionType = 2
	PluginOptionTypeInt    PluginOptionType = 3
	PluginOptionTypeUint   PluginOptionType = 4
)

type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	CustomFlag   string
	CustomEnvVar string
	Type         PluginOptionType
}

func (p *PluginOption) AddToFlagSet(
	fs *pflag.FlagSet,
	pluginType string,
	pluginName string,
) error {
	flagName := p.CustomFlag
	if flagName == "" {
		flagName = fmt.Sprintf("%s-%s-%s", pluginType, pluginName, p.Name)
	}
	var ok bool
	switch p.Type {
	case PluginOptionTypeString:
		var dest *string
		var def string
		if dest, ok = p.Dest.(*string); ok {
			def, ok = p.DefaultValue.(string)
		}
		if ok {
			fs.StringVar(dest, flagName, def, p.Description)
		}
	case PluginOptionTypeBool:
		var dest *bool
		var def bool
		if dest, ok = p.Dest.(*bool); ok {
			def, ok = p.DefaultValue.(bool)
		}
		if ok {
			fs.BoolVar(dest, flagName, def, p.Description)
		}
	case PluginOptionTypeInt:
		var dest *int
		var def int
		if dest, ok = p.Dest.(*int); ok {
			def, ok = p.DefaultValue.(int)
		}
		if ok {
			fs.IntVar(dest, flagName, def, p.Description)
		}
	case PluginOptionTypeUint:
		var dest *uint64
		var def uint64
		if dest, ok = p.Dest.(*uint64); ok {
			def, ok = p.DefaultValue.(uint64)
		}
		if ok {
			fs.Uint64Var(dest, flagName, def, p.Description)
		}
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, p.Name)
	}
	if !ok {
		return fmt.Errorf("mismatched destination or default type for option %s", p.Name)
	}
	return nil
}

func (p *PluginOption) ProcessEnvVars(envPrefix string) error {
	envVar := p.CustomEnvVar
	if envVar == "" {
		envVar = envPrefix + strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_"))
	}
	if value, ok := os.LookupEnv(envVar); ok {
		if err := p.setValue(value); err != nil {
			return fmt.Errorf("%s: %w", envVar, err)
		}
	}
	return nil
}

func (p *PluginOption) ProcessConfig(pluginConfig map[string]any) error {
	if value, ok := pluginConfig[p.Name]; ok {
		return p.setValue(value)
	}
	return nil
}

// setValue assigns value to the option destination. Strings are parsed for
// non-string options so that env vars and YAML scalars can be used directly.
func (p *PluginOption) setValue(value any) error {
	switch p.Type {
	case PluginOptionTypeString:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid type for option %s: expected string", p.Name)
		}
		return assign(p, v)
	case PluginOptionTypeBool:
		switch v := value.(type) {
		case bool:
			return assign(p, v)
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
			}
			return assign(p, b)
		}
		return fmt.Errorf("invalid type for option %s: expected bool", p.Name)
	case PluginOptionTypeInt:
		switch v := value.(type) {
		case int:
			return assign(p, v)
		case string:
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
			}
			return assign(p, i)
		}
		return fmt.Errorf("invalid type for option %s: expected int", p.Name)
	case PluginOptionTypeUint:
		switch v := value.(type) {
		case uint64:
			return assign(p, v)
		case int:
			if v < 0 {
				return fmt.Errorf("invalid value for option %s: negative int", p.Name)
			}
			return assign(p, uint64(v))
		case string:
			u, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
			}
			return assign(p, u)
		}
		return fmt.Errorf("invalid type for option %s: expected uint64 or int", p.Name)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, p.Name)
	}
}

func assign[T any](p *PluginOption, value T) error {
	dest, ok := p.Dest.(*T)
	if !ok || dest == nil {
		return fmt.Errorf("invalid destination for option %s: expected *%T", p.Name, value)
	}
	*dest = value
	return nil
}
