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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exprFixture() *Transpiler {
	tr := NewTranspiler()
	m := newModuleContext("T")
	m.Symbols["a"] = Signal{Dims: vectorDims(8)}
	m.Symbols["u1_s"] = Signal{Dims: vectorDims(8)}
	m.Constants["K"] = 5
	m.addEnum(&Enum{Name: "State", Members: []EnumMember{
		{Name: "IDLE", Value: 0}, {Name: "RUN", Value: 1},
	}, Width: 1})
	tr.modules["T"] = m
	tr.current = m
	return tr
}

func TestEmitExpr(t *testing.T) {
	tr := exprFixture()
	tests := []struct {
		name string
		expr Node
		want string
	}{
		{"signal name", loadName("a"), "a"},
		{"constant substituted", loadName("K"), "5"},
		{"integer literal", intLit(7), "7"},
		{"true literal", &Constant{Value: true}, "1'b1"},
		{"false literal", &Constant{Value: false}, "1'b0"},
		{"add", binOp(loadName("a"), "Add", intLit(1)), "(a + 1)"},
		{"xor", binOp(loadName("a"), "BitXor", loadName("a")), "(a ^ a)"},
		{"shift", binOp(loadName("a"), "LShift", intLit(2)), "(a << 2)"},
		{"bool and", &BoolOp{Op: "And", Values: []Node{loadName("a"), loadName("a")}}, "(a && a)"},
		{"bool or", &BoolOp{Op: "Or", Values: []Node{loadName("a"), loadName("a")}}, "(a || a)"},
		{"not", &UnaryOp{Op: "Not", Operand: loadName("a")}, "!a"},
		{"invert", &UnaryOp{Op: "Invert", Operand: loadName("a")}, "~a"},
		{"negate", &UnaryOp{Op: "USub", Operand: loadName("a")}, "-a"},
		{"compare", &Compare{Left: loadName("a"), Ops: []string{"Eq"}, Comparators: []Node{intLit(0)}}, "(a == 0)"},
		{"ternary", &IfExp{Test: loadName("a"), Body: intLit(1), OrElse: intLit(0)}, "(a ? 1 : 0)"},
		{"concatenation", &Tuple{Elts: []Node{loadName("a"), intLit(0)}}, "{a, 0}"},
		{"index", &Subscript{Value: loadName("a"), Index: intLit(3)}, "a[3]"},
		{"slice", &Subscript{Value: loadName("a"), Index: &Slice{Lower: intLit(7), Upper: intLit(4)}}, "a[7:4]"},
		{"enum member", attrOf("State", "IDLE"), "IDLE"},
		{"submodule output", attrOf("u1", "s"), "u1_s"},
		{"edge marker passthrough", attrOf("clk", "posedge"), "clk.posedge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.emitExpr(tt.expr)
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("emitExpr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmitExprParamSubstitution(t *testing.T) {
	tr := exprFixture()
	tr.pushParams(paramFrame{"i": 2})
	defer tr.popParams()
	got, err := tr.emitExpr(&Subscript{Value: loadName("a"), Index: loadName("i")})
	require.NoError(t, err)
	assert.Equal(t, "a[2]", got)
}

func TestEmitExprChainedCompareWarns(t *testing.T) {
	tr := exprFixture()
	got, err := tr.emitExpr(&Compare{
		Left:        loadName("a"),
		Ops:         []string{"Lt", "Lt"},
		Comparators: []Node{intLit(5), intLit(9)},
	})
	require.NoError(t, err)
	assert.Equal(t, "(a < 5)", got)
	require.Len(t, tr.Warnings(), 1)
	assert.Contains(t, tr.Warnings()[0].Message, "chained comparison")
}

func TestEmitExprUnknownOperatorWarns(t *testing.T) {
	tr := exprFixture()
	got, err := tr.emitExpr(binOp(loadName("a"), "MatMult", loadName("a")))
	require.NoError(t, err)
	assert.Equal(t, "(a MatMult a)", got)
	require.Len(t, tr.Warnings(), 1)
}

func TestEmitExprUnknownEnumMember(t *testing.T) {
	tr := exprFixture()
	_, err := tr.emitExpr(attrOf("State", "HALT"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errSkip)
}

func TestEmitExprUnrecognizedIsSkip(t *testing.T) {
	tr := exprFixture()
	_, err := tr.emitExpr(callExpr("helper", loadName("a")))
	require.True(t, errors.Is(err, errSkip))
}

func TestFormatSized(t *testing.T) {
	assert.Equal(t, "8'd3", formatSized(3, 8))
	assert.Equal(t, "1'd0", formatSized(0, 1))
	assert.Equal(t, "7", formatSized(7, 0))
}
