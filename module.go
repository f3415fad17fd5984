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

// Signal is a symbol-table entry for a port or internal signal.
type Signal struct {
	Dims Dims
}

// Port is a module-boundary signal. Declaration order determines the port
// order of the emitted header.
type Port struct {
	Name      string
	Direction string // "input" or "output"
	Dims      Dims
}

// EnumMember is one named state of an enum, in declaration order.
type EnumMember struct {
	Name  string
	Value int
}

// Enum is an ordered set of named integer members with a derived bit width.
type Enum struct {
	Name    string
	Members []EnumMember
	Width   int
}

// Instance is a submodule instantiation. Mapping is keyed by the referenced
// module's port names; emission order follows that module's port order, not
// the wiring order.
type Instance struct {
	Module  string
	Mapping map[string]string
}

// ModuleContext holds the state of one module under translation. It is
// created on entry to a class body, sealed on exit, and never mutated after
// emission.
type ModuleContext struct {
	Name      string
	Symbols   map[string]Signal
	Constants map[string]int
	Ports     []Port

	Decls []string // internal declarations, synthesis order
	Comb  []string // combinational statements

	Seq      map[string][]string // clock spec -> sequential statements
	SeqOrder []string            // clock specs in insertion order

	Instances     map[string]*Instance
	InstanceOrder []string

	Enums     map[string]*Enum
	EnumOrder []string
}

func newModuleContext(name string) *ModuleContext {
	return &ModuleContext{
		Name:      name,
		Symbols:   map[string]Signal{},
		Constants: map[string]int{},
		Seq:       map[string][]string{},
		Instances: map[string]*Instance{},
		Enums:     map[string]*Enum{},
	}
}

// Port returns the declared port with the given name.
func (m *ModuleContext) Port(name string) (Port, bool) {
	for _, p := range m.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

func (m *ModuleContext) addEnum(e *Enum) {
	if _, ok := m.Enums[e.Name]; !ok {
		m.EnumOrder = append(m.EnumOrder, e.Name)
	}
	m.Enums[e.Name] = e
}

func (m *ModuleContext) addInstance(name string, inst *Instance) {
	if _, ok := m.Instances[name]; !ok {
		m.InstanceOrder = append(m.InstanceOrder, name)
	}
	m.Instances[name] = inst
}

func (m *ModuleContext) ensureSeqBuffer(clock string) {
	if _, ok := m.Seq[clock]; !ok {
		m.Seq[clock] = []string{}
		m.SeqOrder = append(m.SeqOrder, clock)
	}
}

// declare inserts a signal into the symbol table and appends its internal
// declaration line.
func (m *ModuleContext) declare(name string, dims Dims) {
	m.Symbols[name] = Signal{Dims: dims}
	m.Decls = append(m.Decls, m.declString("", name, dims)+";")
}

// signalWidth returns the bit width of a signal with the given dimensions.
// Enum-typed signals take the enum's derived width.
func (m *ModuleContext) signalWidth(d Dims) int {
	if d.Kind == DimsEnum {
		if e, ok := m.Enums[d.Enum]; ok {
			return e.Width
		}
		return 1
	}
	return d.InnerWidth()
}
