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

	"github.com/stretchr/testify/assert"
)

func dimsFixture() *Transpiler {
	tr := NewTranspiler()
	m := newModuleContext("T")
	m.Constants["W"] = 8
	m.addEnum(&Enum{Name: "State", Members: []EnumMember{{Name: "IDLE", Value: 0}}, Width: 1})
	tr.modules["T"] = m
	tr.current = m
	return tr
}

func TestResolveDims(t *testing.T) {
	tr := dimsFixture()
	tests := []struct {
		name      string
		node      Node
		wantDims  Dims
		direction string
		result    dimsResult
	}{
		{"input vector", inType(bitType(intLit(8))), vectorDims(8), "input", dimsOK},
		{"output scalar", outType(bitType()), scalarDims(), "output", dimsOK},
		{"bare scalar", bitType(), scalarDims(), "", dimsOK},
		{"vector", bitType(intLit(16)), vectorDims(16), "", dimsOK},
		{"memory mirrors depth and width", bitType(intLit(4), intLit(8)), memoryDims(4, 8), "", dimsOK},
		{"constant dimension", bitType(loadName("W")), vectorDims(8), "", dimsOK},
		{"enum reference", loadName("State"), enumDims("State"), "", dimsOK},
		{"plain name is not a type", loadName("other"), Dims{}, "", dimsNotType},
		{"expression is not a type", binOp(loadName("a"), "Add", intLit(1)), Dims{}, "", dimsNotType},
		{"irreducible dimension", bitType(loadName("N")), Dims{}, "", dimsInvalid},
		{"zero width", bitType(intLit(0)), Dims{}, "", dimsInvalid},
		{"too many dimensions", bitType(intLit(2), intLit(2), intLit(2)), Dims{}, "", dimsInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dims, direction, result := tr.resolveDims(tt.node)
			assert.Equal(t, tt.result, result)
			if result == dimsOK {
				assert.Equal(t, tt.wantDims, dims)
				assert.Equal(t, tt.direction, direction)
			}
		})
	}
}

func TestDeclString(t *testing.T) {
	m := newModuleContext("T")
	tests := []struct {
		name      string
		direction string
		dims      Dims
		want      string
	}{
		{"x", "", scalarDims(), "logic x"},
		{"a", "input", vectorDims(8), "input logic [7:0] a"},
		{"s", "output", vectorDims(9), "output logic [8:0] s"},
		{"mem", "", memoryDims(4, 8), "logic [7:0] mem [0:3]"},
		{"curr", "", enumDims("State"), "State_t curr"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := m.declString(tt.direction, tt.name, tt.dims)
			if got != tt.want {
				t.Errorf("declString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSignalWidth(t *testing.T) {
	m := newModuleContext("T")
	m.addEnum(&Enum{Name: "State", Width: 2})
	assert.Equal(t, 1, m.signalWidth(scalarDims()))
	assert.Equal(t, 8, m.signalWidth(vectorDims(8)))
	assert.Equal(t, 16, m.signalWidth(memoryDims(4, 16)))
	assert.Equal(t, 2, m.signalWidth(enumDims("State")))
	assert.Equal(t, 1, m.signalWidth(enumDims("Unknown")))
}
