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

// DimsKind discriminates the shapes a signal can take.
type DimsKind int

const (
	// DimsScalar is a bare bit.
	DimsScalar DimsKind = iota
	// DimsVector is a 1-D vector bit[W].
	DimsVector
	// DimsMemory is a 2-D memory bit[D][W], outermost element is the depth.
	DimsMemory
	// DimsEnum is an enum-typed signal.
	DimsEnum
)

// Dims is the canonical dimension descriptor of a signal.
type Dims struct {
	Kind  DimsKind
	Depth int
	Width int
	Enum  string
}

func scalarDims() Dims          { return Dims{Kind: DimsScalar} }
func vectorDims(width int) Dims { return Dims{Kind: DimsVector, Width: width} }
func enumDims(name string) Dims { return Dims{Kind: DimsEnum, Enum: name} }

func memoryDims(depth, width int) Dims {
	return Dims{Kind: DimsMemory, Depth: depth, Width: width}
}

// InnerWidth is the width of one addressable element: the full width of a
// scalar or vector, the word width of a memory. Enum widths live on the
// enum itself; use ModuleContext.signalWidth for those.
func (d Dims) InnerWidth() int {
	switch d.Kind {
	case DimsVector, DimsMemory:
		return d.Width
	default:
		return 1
	}
}

// declString renders a SystemVerilog declaration for a signal of the given
// dimensions, optionally prefixed with a port direction.
func (m *ModuleContext) declString(direction, name string, d Dims) string {
	prefix := ""
	if direction != "" {
		prefix = direction + " "
	}
	switch d.Kind {
	case DimsEnum:
		return fmt.Sprintf("%s%s_t %s", prefix, d.Enum, name)
	case DimsVector:
		return fmt.Sprintf("%slogic [%d:0] %s", prefix, d.Width-1, name)
	case DimsMemory:
		return fmt.Sprintf("%slogic [%d:0] %s [0:%d]", prefix, d.Width-1, name, d.Depth-1)
	default:
		return fmt.Sprintf("%slogic %s", prefix, name)
	}
}

// dimsResult reports how a value node fared as a type annotation.
type dimsResult int

const (
	// dimsNotType: the node is not a type annotation at all.
	dimsNotType dimsResult = iota
	// dimsOK: a canonical dimension list was extracted.
	dimsOK
	// dimsInvalid: the node is shaped like a type annotation but a
	// dimension could not be reduced to a compile-time integer.
	dimsInvalid
)

// resolveDims recognizes type-annotation expressions: In(t) / Out(t), a bare
// enum name, or a raw bit[...] chain. Direction is "" unless wrapped in
// In/Out.
func (t *Transpiler) resolveDims(node Node) (Dims, string, dimsResult) {
	if call, ok := node.(*Call); ok {
		if fn, ok := call.Func.(*Name); ok && (fn.ID == "In" || fn.ID == "Out") {
			direction := "input"
			if fn.ID == "Out" {
				direction = "output"
			}
			if len(call.Args) != 1 {
				return Dims{}, "", dimsInvalid
			}
			dims, res := t.resolveDimsRaw(call.Args[0])
			return dims, direction, res
		}
	}
	if name, ok := node.(*Name); ok {
		if t.lookupEnum(name.ID) != nil {
			return enumDims(name.ID), "", dimsOK
		}
	}
	dims, res := t.resolveDimsRaw(node)
	return dims, "", res
}

// resolveDimsRaw descends nested subscripts bit[a][b]..., evaluating each
// slice at compile time. Dimensions are reversed so the innermost subscript
// lands last: bit[A][B] yields depth A, width B.
func (t *Transpiler) resolveDimsRaw(node Node) (Dims, dimsResult) {
	var rev []Node
	curr := node
	for {
		sub, ok := curr.(*Subscript)
		if !ok {
			break
		}
		rev = append(rev, sub.Index)
		curr = sub.Value
	}
	base, ok := curr.(*Name)
	if !ok || base.ID != "bit" {
		return Dims{}, dimsNotType
	}
	dims := make([]int, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		v, ok := t.evalConst(rev[i])
		if !ok || v <= 0 {
			return Dims{}, dimsInvalid
		}
		dims = append(dims, v)
	}
	switch len(dims) {
	case 0:
		return scalarDims(), dimsOK
	case 1:
		return vectorDims(dims[0]), dimsOK
	case 2:
		return memoryDims(dims[0], dims[1]), dimsOK
	default:
		return Dims{}, dimsInvalid
	}
}
