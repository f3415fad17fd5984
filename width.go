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
	"math/bits"
)

// inferWidth computes the bit width of an expression from its structure,
// the symbol table, and compile-time constants. The only error case is a
// malformed slice, which is fatal.
func (t *Transpiler) inferWidth(node Node) (int, error) {
	switch n := node.(type) {
	case *Tuple:
		total := 0
		for _, elt := range n.Elts {
			w, err := t.inferWidth(elt)
			if err != nil {
				return 0, err
			}
			total += w
		}
		return total, nil
	case *IfExp:
		wb, err := t.inferWidth(n.Body)
		if err != nil {
			return 0, err
		}
		we, err := t.inferWidth(n.OrElse)
		if err != nil {
			return 0, err
		}
		return max(wb, we), nil
	case *UnaryOp:
		return t.inferWidth(n.Operand)
	case *BinOp:
		wl, err := t.inferWidth(n.Left)
		if err != nil {
			return 0, err
		}
		wr, err := t.inferWidth(n.Right)
		if err != nil {
			return 0, err
		}
		if n.Op == "Add" || n.Op == "Sub" {
			return max(wl, wr) + 1, nil
		}
		return max(wl, wr), nil
	case *Compare, *BoolOp:
		return 1, nil
	case *Name:
		if v, ok := t.evalConst(n); ok {
			if v > 0 {
				return v, nil
			}
			return 1, nil
		}
		if t.current != nil {
			if sig, ok := t.current.Symbols[n.ID]; ok {
				return t.current.signalWidth(sig.Dims), nil
			}
		}
		return 1, nil
	case *Attribute:
		if t.current != nil {
			if sig, ok := t.current.Symbols[attributeSignal(n)]; ok {
				return t.current.signalWidth(sig.Dims), nil
			}
		}
		return 1, nil
	case *Constant:
		if v, ok := intConst(n); ok {
			return literalWidth(v), nil
		}
		return 1, nil
	case *Subscript:
		if slice, ok := n.Index.(*Slice); ok {
			return t.sliceWidth(slice)
		}
		if name, ok := n.Value.(*Name); ok && t.current != nil {
			if sig, ok := t.current.Symbols[name.ID]; ok && sig.Dims.Kind == DimsMemory {
				return sig.Dims.Width, nil
			}
		}
		return 1, nil
	}
	return 1, nil
}

// sliceWidth computes |hi - lo| + 1. Absent bounds are a hard error;
// irreducible bounds are an inference limit.
func (t *Transpiler) sliceWidth(slice *Slice) (int, error) {
	if slice.Lower == nil || slice.Upper == nil {
		return 0, fmt.Errorf("slice is missing a bound")
	}
	hi, okHi := t.evalConst(slice.Lower)
	lo, okLo := t.evalConst(slice.Upper)
	if !okHi || !okLo {
		t.warnf("slice bounds are not compile-time integers")
		return 1, nil
	}
	if hi >= lo {
		return hi - lo + 1, nil
	}
	return lo - hi + 1, nil
}

// attributeSignal maps an attribute access inst.port to the internal signal
// name inst_port materialized at instantiation.
func attributeSignal(n *Attribute) string {
	base, ok := n.Value.(*Name)
	if !ok {
		return ""
	}
	return base.ID + "_" + n.Attr
}

// literalWidth is the minimal width of an integer literal.
func literalWidth(v int) int {
	if v == 0 {
		return 1
	}
	if v < 0 {
		v = -v
	}
	return bits.Len(uint(v))
}
