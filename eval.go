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

// paramFrame binds names to integers for the extent of one loop body or
// template body.
type paramFrame map[string]int

// paramStack is the LIFO of frames pushed by the loop unroller and the
// template monomorphizer. Lookup walks top-of-stack first.
type paramStack []paramFrame

func (s paramStack) lookup(name string) (int, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if v, ok := s[i][name]; ok {
			return v, true
		}
	}
	return 0, false
}

func (t *Transpiler) pushParams(frame paramFrame) {
	t.params = append(t.params, frame)
}

func (t *Transpiler) popParams() {
	t.params = t.params[:len(t.params)-1]
}

// evalConst reduces an expression to a compile-time integer, consulting the
// parameter stack and the current module's named constants. The second
// return is false when the expression is irreducible.
func (t *Transpiler) evalConst(node Node) (int, bool) {
	switch n := node.(type) {
	case *Constant:
		return intConst(n)
	case *Name:
		if v, ok := t.params.lookup(n.ID); ok {
			return v, true
		}
		if t.current != nil {
			if v, ok := t.current.Constants[n.ID]; ok {
				return v, true
			}
		}
		return 0, false
	case *UnaryOp:
		// Negative literals arrive as USub over a constant, e.g. the
		// step of range(3, -1, -1).
		v, ok := t.evalConst(n.Operand)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case "USub":
			return -v, true
		case "UAdd":
			return v, true
		}
		return 0, false
	case *BinOp:
		l, ok := t.evalConst(n.Left)
		if !ok {
			return 0, false
		}
		r, ok := t.evalConst(n.Right)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case "Add":
			return l + r, true
		case "Sub":
			return l - r, true
		case "Mult":
			return l * r, true
		case "Div", "FloorDiv":
			if r == 0 {
				return 0, false
			}
			return l / r, true
		case "Mod":
			if r == 0 {
				return 0, false
			}
			return l % r, true
		case "Pow":
			return intPow(l, r)
		}
		return 0, false
	}
	return 0, false
}

func intPow(base, exp int) (int, bool) {
	if exp < 0 {
		return 0, false
	}
	result := 1
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result, true
}
