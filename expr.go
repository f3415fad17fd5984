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
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// errSkip marks a construct the translator does not recognize. The
// enclosing statement is dropped without aborting translation.
var errSkip = errors.New("unrecognized construct")

// svBinOps maps source binary operators to SystemVerilog.
var svBinOps = map[string]string{
	"Add":      "+",
	"Sub":      "-",
	"Mult":     "*",
	"Div":      "/",
	"FloorDiv": "/",
	"Mod":      "%",
	"Pow":      "**",
	"BitAnd":   "&",
	"BitOr":    "|",
	"BitXor":   "^",
	"LShift":   "<<",
	"RShift":   ">>",
}

// svCompareOps maps source comparison operators to SystemVerilog.
var svCompareOps = map[string]string{
	"Eq":    "==",
	"NotEq": "!=",
	"Lt":    "<",
	"LtE":   "<=",
	"Gt":    ">",
	"GtE":   ">=",
}

// svUnaryOps maps source unary operators to SystemVerilog.
var svUnaryOps = map[string]string{
	"Not":    "!",
	"Invert": "~",
	"USub":   "-",
	"UAdd":   "",
}

// formatSized renders an integer as a sized decimal literal, W'dV.
func formatSized(value, width int) string {
	if width > 0 {
		return fmt.Sprintf("%d'd%d", width, value)
	}
	return strconv.Itoa(value)
}

// emitExpr renders an expression as SystemVerilog text. Names bound on the
// parameter stack or as module constants are substituted with their values.
func (t *Transpiler) emitExpr(node Node) (string, error) {
	switch n := node.(type) {
	case *Name:
		if v, ok := t.params.lookup(n.ID); ok {
			return strconv.Itoa(v), nil
		}
		if t.current != nil {
			if v, ok := t.current.Constants[n.ID]; ok {
				return strconv.Itoa(v), nil
			}
		}
		return n.ID, nil
	case *Constant:
		if v, ok := intConst(n); ok {
			return strconv.Itoa(v), nil
		}
		if b, ok := n.Value.(bool); ok {
			if b {
				return "1'b1", nil
			}
			return "1'b0", nil
		}
		return "", errSkip
	case *BinOp:
		left, err := t.emitExpr(n.Left)
		if err != nil {
			return "", err
		}
		right, err := t.emitExpr(n.Right)
		if err != nil {
			return "", err
		}
		op, ok := svBinOps[n.Op]
		if !ok {
			// Pass-through, same policy as out-of-bounds subscripts.
			t.warnf("unsupported binary operator %q", n.Op)
			op = n.Op
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	case *BoolOp:
		op := "&&"
		if n.Op == "Or" {
			op = "||"
		}
		parts := make([]string, 0, len(n.Values))
		for _, v := range n.Values {
			s, err := t.emitExpr(v)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "(" + strings.Join(parts, " "+op+" ") + ")", nil
	case *UnaryOp:
		operand, err := t.emitExpr(n.Operand)
		if err != nil {
			return "", err
		}
		op, ok := svUnaryOps[n.Op]
		if !ok {
			t.warnf("unsupported unary operator %q", n.Op)
		}
		return op + operand, nil
	case *Compare:
		if len(n.Ops) == 0 || len(n.Comparators) == 0 {
			return "", errSkip
		}
		if len(n.Ops) > 1 {
			t.warnf("chained comparison truncated to its first operator")
		}
		left, err := t.emitExpr(n.Left)
		if err != nil {
			return "", err
		}
		right, err := t.emitExpr(n.Comparators[0])
		if err != nil {
			return "", err
		}
		op, ok := svCompareOps[n.Ops[0]]
		if !ok {
			t.warnf("unsupported comparison operator %q", n.Ops[0])
			op = n.Ops[0]
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	case *IfExp:
		test, err := t.emitExpr(n.Test)
		if err != nil {
			return "", err
		}
		body, err := t.emitExpr(n.Body)
		if err != nil {
			return "", err
		}
		orelse, err := t.emitExpr(n.OrElse)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s ? %s : %s)", test, body, orelse), nil
	case *Tuple:
		parts := make([]string, 0, len(n.Elts))
		for _, elt := range n.Elts {
			s, err := t.emitExpr(elt)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	case *Subscript:
		return t.emitSubscript(n)
	case *Attribute:
		return t.emitAttribute(n)
	}
	return "", errSkip
}

func (t *Transpiler) emitSubscript(n *Subscript) (string, error) {
	base, err := t.emitExpr(n.Value)
	if err != nil {
		return "", err
	}
	if slice, ok := n.Index.(*Slice); ok {
		if slice.Lower == nil || slice.Upper == nil {
			return "", fmt.Errorf("slice on %q is missing a bound", base)
		}
		hi, err := t.emitExpr(slice.Lower)
		if err != nil {
			return "", err
		}
		lo, err := t.emitExpr(slice.Upper)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%s:%s]", base, hi, lo), nil
	}
	idx, err := t.emitExpr(n.Index)
	if err != nil {
		return "", err
	}
	t.checkBounds(n)
	return fmt.Sprintf("%s[%s]", base, idx), nil
}

// checkBounds warns on a constant index that exceeds a known signal's
// declared range. The subscript is emitted regardless.
func (t *Transpiler) checkBounds(n *Subscript) {
	name, ok := n.Value.(*Name)
	if !ok || t.current == nil {
		return
	}
	sig, ok := t.current.Symbols[name.ID]
	if !ok {
		return
	}
	idx, ok := t.evalConst(n.Index)
	if !ok {
		return
	}
	switch sig.Dims.Kind {
	case DimsMemory:
		if idx < 0 || idx >= sig.Dims.Depth {
			t.warnf("index %d out of bounds for %q (depth %d)", idx, name.ID, sig.Dims.Depth)
		}
	case DimsVector:
		if idx < 0 || idx >= sig.Dims.Width {
			t.warnf("index %d out of bounds for %q (width %d)", idx, name.ID, sig.Dims.Width)
		}
	}
}

// emitAttribute resolves enum-member access to the bare member name and
// submodule output access to its materialized internal signal. Anything
// else is passed through as-is (clock-edge markers are consumed upstream).
func (t *Transpiler) emitAttribute(n *Attribute) (string, error) {
	base, err := t.emitExpr(n.Value)
	if err != nil {
		return "", err
	}
	if e := t.useEnum(base); e != nil {
		if _, ok := lo.Find(e.Members, func(m EnumMember) bool { return m.Name == n.Attr }); ok {
			return n.Attr, nil
		}
		return "", fmt.Errorf("enum %s has no member %q", base, n.Attr)
	}
	if t.current != nil {
		internal := base + "_" + n.Attr
		if _, ok := t.current.Symbols[internal]; ok {
			return internal, nil
		}
	}
	return base + "." + n.Attr, nil
}
