// Copyright 2026 Ant Group Co., Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig controls the async engine's optimization pipeline.
type EngineConfig struct {
	// Pass toggles. All passes run by default.
	OptimizeListGen   bool `yaml:"optimize_listgen"`
	Fuse              bool `yaml:"fuse"`
	OptimizeDeadStore bool `yaml:"optimize_dead_store"`

	// MaxRounds bounds the flush-time fixed-point iteration.
	MaxRounds int `yaml:"max_rounds"`

	// DotRankdir is passed verbatim to graph rendering ("" leaves it unset).
	DotRankdir string `yaml:"dot_rankdir"`

	// Debug adds a Graphviz dump of the graph to the debug log at each
	// flush. The passes' own debug logging does not depend on it.
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when no file is given.
func Default() *EngineConfig {
	return &EngineConfig{
		OptimizeListGen:   true,
		Fuse:              true,
		OptimizeDeadStore: true,
		MaxRounds:         10,
	}
}

// Load reads an EngineConfig from a YAML file, filling unset fields with
// defaults.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func Validate(cfg *EngineConfig) error {
	if cfg.MaxRounds <= 0 {
		return fmt.Errorf("config: max_rounds must be positive, got %d", cfg.MaxRounds)
	}
	switch cfg.DotRankdir {
	case "", "LR", "RL", "TB", "BT":
	default:
		return fmt.Errorf("config: dot_rankdir must be one of LR, RL, TB, BT, got %q", cfg.DotRankdir)
	}
	return nil
}
