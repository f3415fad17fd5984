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
	"testing"
)

func evalFixture() *Transpiler {
	tr := NewTranspiler()
	m := newModuleContext("T")
	m.Constants["W"] = 8
	tr.modules["T"] = m
	tr.current = m
	return tr
}

func TestEvalConst(t *testing.T) {
	tr := evalFixture()
	tests := []struct {
		name string
		expr Node
		want int
		ok   bool
	}{
		{"literal", intLit(42), 42, true},
		{"constant name", loadName("W"), 8, true},
		{"unknown name", loadName("missing"), 0, false},
		{"add", binOp(intLit(2), "Add", intLit(3)), 5, true},
		{"sub", binOp(intLit(2), "Sub", intLit(3)), -1, true},
		{"mult", binOp(intLit(4), "Mult", loadName("W")), 32, true},
		{"div truncates", binOp(intLit(7), "Div", intLit(2)), 3, true},
		{"floordiv", binOp(intLit(7), "FloorDiv", intLit(2)), 3, true},
		{"div by zero", binOp(intLit(7), "Div", intLit(0)), 0, false},
		{"mod", binOp(intLit(7), "Mod", intLit(4)), 3, true},
		{"pow", binOp(intLit(2), "Pow", intLit(10)), 1024, true},
		{"negative pow", binOp(intLit(2), "Pow", &UnaryOp{Op: "USub", Operand: intLit(1)}), 0, false},
		{"negative literal", &UnaryOp{Op: "USub", Operand: intLit(5)}, -5, true},
		{"unary plus", &UnaryOp{Op: "UAdd", Operand: intLit(5)}, 5, true},
		{"unknown operand", binOp(loadName("missing"), "Add", intLit(1)), 0, false},
		{"unsupported operator", binOp(intLit(1), "LShift", intLit(2)), 0, false},
		{"non-integer constant", &Constant{Value: "text"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tr.evalConst(tt.expr)
			if ok != tt.ok || got != tt.want {
				t.Errorf("evalConst() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParamStackShadowsConstants(t *testing.T) {
	tr := evalFixture()
	tr.pushParams(paramFrame{"W": 16})
	if v, ok := tr.evalConst(loadName("W")); !ok || v != 16 {
		t.Errorf("evalConst(W) = (%d, %v), want (16, true)", v, ok)
	}
	tr.pushParams(paramFrame{"i": 3})
	// The top frame wins, outer frames remain visible.
	if v, ok := tr.evalConst(loadName("W")); !ok || v != 16 {
		t.Errorf("evalConst(W) under nested frame = (%d, %v), want (16, true)", v, ok)
	}
	tr.popParams()
	tr.popParams()
	if v, ok := tr.evalConst(loadName("W")); !ok || v != 8 {
		t.Errorf("evalConst(W) after pops = (%d, %v), want (8, true)", v, ok)
	}
}
