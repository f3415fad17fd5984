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

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// SystemVerilogEmitter implements Emitter for synthesizable SystemVerilog.
type SystemVerilogEmitter struct{}

// Name returns the target name
func (e *SystemVerilogEmitter) Name() string {
	return "systemverilog"
}

// FileExtension returns the extension for generated files
func (e *SystemVerilogEmitter) FileExtension() string {
	return ".sv"
}

// Emit serializes each module: header, enum typedefs, internal
// declarations, instances, always_comb, then one always_ff per clock spec.
func (e *SystemVerilogEmitter) Emit(modules []*ModuleContext) string {
	byName := lo.KeyBy(modules, func(m *ModuleContext) string { return m.Name })
	texts := lo.Map(modules, func(m *ModuleContext, _ int) string {
		return e.emitModule(m, byName)
	})
	return strings.Join(texts, "\n\n") + "\n"
}

func (e *SystemVerilogEmitter) emitModule(m *ModuleContext, byName map[string]*ModuleContext) string {
	var sb strings.Builder
	if len(m.Ports) == 0 {
		sb.WriteString(fmt.Sprintf("module %s ();\n", m.Name))
	} else {
		ports := lo.Map(m.Ports, func(p Port, _ int) string {
			return "    " + m.declString(p.Direction, p.Name, p.Dims)
		})
		sb.WriteString(fmt.Sprintf("module %s (\n%s\n);\n", m.Name, strings.Join(ports, ",\n")))
	}

	for _, name := range m.EnumOrder {
		sb.WriteString("    " + enumTypedef(m.Enums[name]) + "\n")
	}
	for _, decl := range m.Decls {
		sb.WriteString("    " + decl + "\n")
	}
	for _, inst := range m.InstanceOrder {
		sb.WriteString("    " + e.emitInstance(m, inst, byName) + "\n")
	}
	if len(m.Comb) > 0 {
		sb.WriteString("    always_comb begin\n")
		writeBlock(&sb, m.Comb)
		sb.WriteString("    end\n")
	}
	for _, clock := range m.SeqOrder {
		sb.WriteString(fmt.Sprintf("    always_ff @(%s) begin\n", clock))
		writeBlock(&sb, m.Seq[clock])
		sb.WriteString("    end\n")
	}
	sb.WriteString("endmodule")
	return sb.String()
}

// emitInstance renders one submodule instantiation. The port mapping
// follows the referenced module's port order, not the wiring order.
func (e *SystemVerilogEmitter) emitInstance(m *ModuleContext, name string, byName map[string]*ModuleContext) string {
	inst := m.Instances[name]
	var mappings []string
	if sub, ok := byName[inst.Module]; ok {
		for _, p := range sub.Ports {
			if rhs, wired := inst.Mapping[p.Name]; wired {
				mappings = append(mappings, fmt.Sprintf(".%s(%s)", p.Name, rhs))
			}
		}
	}
	return fmt.Sprintf("%s %s (%s);", inst.Module, name, strings.Join(mappings, ", "))
}

// enumTypedef renders a typedef with sized member literals.
func enumTypedef(e *Enum) string {
	members := lo.Map(e.Members, func(m EnumMember, _ int) string {
		return fmt.Sprintf("%s=%d'd%d", m.Name, e.Width, m.Value)
	})
	return fmt.Sprintf("typedef enum logic [%d:0] {%s} %s_t;",
		e.Width-1, strings.Join(members, ", "), e.Name)
}

// writeBlock writes buffered statements at one indent level inside an
// always block. Composite statements carry their own internal indentation.
func writeBlock(sb *strings.Builder, stmts []string) {
	for _, stmt := range stmts {
		for _, line := range strings.Split(stmt, "\n") {
			sb.WriteString("        " + line + "\n")
		}
	}
}

func init() {
	RegisterEmitter("systemverilog", &SystemVerilogEmitter{})
}
