// Copyright 2025 phdl Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import "fmt"

// Emitter defines the interface for target-specific code generation.
type Emitter interface {
	// Name returns the target name (e.g. "systemverilog")
	Name() string

	// FileExtension returns the extension for generated files
	FileExtension() string

	// Emit serializes the translated modules, in creation order, to a
	// single output text.
	Emit(modules []*ModuleContext) string
}

// emitters holds the registered target emitters
var emitters = map[string]Emitter{}

// RegisterEmitter registers a target emitter
func RegisterEmitter(target string, e Emitter) {
	emitters[target] = e
}

// GetEmitter returns the emitter for the given target
func GetEmitter(target string) (Emitter, error) {
	if e, ok := emitters[target]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("unsupported target: %s (available: systemverilog)", target)
}

// ListTargets returns a list of supported targets
func ListTargets() []string {
	targets := make([]string, 0, len(emitters))
	for target := range emitters {
		targets = append(targets, target)
	}
	return targets
}
