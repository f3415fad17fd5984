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
	"math/bits"
	"strings"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Warning is a recoverable diagnostic. Warnings never abort translation.
type Warning struct {
	Module  string
	Message string
}

// Transpiler drives the translation of a parsed source file into a set of
// module contexts. It is single-threaded and holds no I/O.
type Transpiler struct {
	modules     map[string]*ModuleContext
	moduleOrder []string
	templates   map[string]*moduleTemplate
	monomorphs  map[string]string // canonical parameter-set key -> module name
	globalEnums map[string]*Enum

	params    paramStack
	current   *ModuleContext
	clockSpec string

	warnings []Warning
}

// NewTranspiler returns an empty translator.
func NewTranspiler() *Transpiler {
	return &Transpiler{
		modules:     map[string]*ModuleContext{},
		templates:   map[string]*moduleTemplate{},
		monomorphs:  map[string]string{},
		globalEnums: map[string]*Enum{},
	}
}

// Translate walks the top-level statements of a program. Fatal errors abort
// translation; recoverable conditions are collected as warnings.
func (t *Transpiler) Translate(prog *Program) error {
	for _, stmt := range prog.Body {
		if err := t.visitStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Modules returns the translated module contexts in creation order.
func (t *Transpiler) Modules() []*ModuleContext {
	return lo.Map(t.moduleOrder, func(name string, _ int) *ModuleContext {
		return t.modules[name]
	})
}

// Warnings returns the collected warnings in discovery order.
func (t *Transpiler) Warnings() []Warning {
	return t.warnings
}

func (t *Transpiler) warnf(format string, args ...any) {
	module := ""
	if t.current != nil {
		module = t.current.Name
	}
	w := Warning{Module: module, Message: fmt.Sprintf(format, args...)}
	t.warnings = append(t.warnings, w)
	log.Debugf("warning (%s): %s", module, w.Message)
}

// lookupEnum resolves an enum by name in the current module, falling back to
// top-level enum definitions.
func (t *Transpiler) lookupEnum(name string) *Enum {
	if t.current != nil {
		if e, ok := t.current.Enums[name]; ok {
			return e
		}
	}
	if e, ok := t.globalEnums[name]; ok {
		return e
	}
	return nil
}

// useEnum is lookupEnum plus adoption: a top-level enum referenced by a
// module is copied into that module so its typedef is emitted there.
func (t *Transpiler) useEnum(name string) *Enum {
	e := t.lookupEnum(name)
	if e == nil {
		return nil
	}
	if t.current != nil {
		if _, ok := t.current.Enums[name]; !ok {
			t.current.addEnum(e)
		}
	}
	return e
}

func (t *Transpiler) visitStmt(stmt Node) error {
	switch n := stmt.(type) {
	case *ClassDef:
		return t.visitClassDef(n)
	case *Assign:
		return t.visitAssign(n)
	case *For:
		return t.visitFor(n)
	case *If:
		return t.visitIf(n)
	case *Match:
		return t.visitMatch(n)
	case *ExprStmt:
		return nil
	default:
		log.Debugf("skipping unrecognized statement %T", stmt)
		return nil
	}
}

func (t *Transpiler) visitClassDef(def *ClassDef) error {
	if lo.Contains(def.Bases, "Enum") {
		e := extractEnum(def)
		if t.current != nil {
			t.current.addEnum(e)
		} else {
			t.globalEnums[e.Name] = e
		}
		log.Debugf("enum %s: %d states, %d bits", e.Name, len(e.Members), e.Width)
		return nil
	}
	if free := t.freeNames(def); len(free) > 0 {
		t.templates[def.Name] = &moduleTemplate{def: def, free: free}
		log.Debugf("deferring template %s (free names: %s)", def.Name, strings.Join(free, ", "))
		return nil
	}
	_, err := t.translateModule(def.Name, def.Body)
	return err
}

// translateModule enters a fresh module context, translates a class body
// into it, and restores the previous context. It is re-entrant: template
// monomorphization calls back into it mid-statement.
func (t *Transpiler) translateModule(name string, body []Node) (*ModuleContext, error) {
	saved, savedClock := t.current, t.clockSpec
	m := newModuleContext(name)
	t.modules[name] = m
	t.moduleOrder = append(t.moduleOrder, name)
	t.current, t.clockSpec = m, ""
	log.Debugf("translating module %s", name)
	for _, stmt := range body {
		if err := t.visitStmt(stmt); err != nil {
			t.current, t.clockSpec = saved, savedClock
			return nil, err
		}
	}
	t.current, t.clockSpec = saved, savedClock
	return m, nil
}

// extractEnum builds the ordered member table of an Enum class body.
func extractEnum(def *ClassDef) *Enum {
	e := &Enum{Name: def.Name}
	for _, stmt := range def.Body {
		assign, ok := stmt.(*Assign)
		if !ok || len(assign.Targets) == 0 {
			continue
		}
		name, ok := assign.Targets[0].(*Name)
		if !ok {
			continue
		}
		if v, ok := intConst(assign.Value); ok {
			e.Members = append(e.Members, EnumMember{Name: name.ID, Value: v})
		}
	}
	e.Width = enumWidth(len(e.Members))
	return e
}

// enumWidth is max(1, ceil(log2 n)).
func enumWidth(states int) int {
	if states <= 2 {
		return 1
	}
	return bits.Len(uint(states - 1))
}

// visitAssign classifies an assignment by shape: constant definition,
// submodule port wiring, instantiation, declaration, or logic assignment.
// The first matching clause wins.
func (t *Transpiler) visitAssign(a *Assign) error {
	if t.current == nil || len(a.Targets) == 0 {
		return nil
	}
	target := a.Targets[0]

	// Constant definition. Sequential position or a bound name means this
	// is a real assignment of a literal, not a constant.
	if name, ok := target.(*Name); ok && t.clockSpec == "" {
		if _, bound := t.current.Symbols[name.ID]; !bound {
			if v, ok := intConst(a.Value); ok {
				t.current.Constants[name.ID] = v
				return nil
			}
		}
	}

	// Submodule port wiring: inst.port = expr at the combinational level.
	if attr, ok := target.(*Attribute); ok {
		if t.clockSpec != "" {
			return nil
		}
		return t.wirePort(attr, a.Value)
	}

	// Instantiation of a template or an already-translated module.
	if call, ok := a.Value.(*Call); ok {
		if fn, ok := call.Func.(*Name); ok {
			if tmpl, isTemplate := t.templates[fn.ID]; isTemplate {
				return t.instantiateTemplate(target, tmpl, call)
			}
			if _, isModule := t.modules[fn.ID]; isModule {
				name, ok := target.(*Name)
				if !ok {
					return nil
				}
				return t.instantiate(name.ID, fn.ID)
			}
		}
	}

	// Declaration: the value is a type annotation.
	dims, direction, res := t.resolveDims(a.Value)
	switch res {
	case dimsInvalid:
		t.warnf("cannot evaluate declaration dimensions, skipping")
		return nil
	case dimsOK:
		name, ok := target.(*Name)
		if !ok {
			return nil
		}
		if dims.Kind == DimsEnum {
			t.useEnum(dims.Enum)
		}
		t.current.Symbols[name.ID] = Signal{Dims: dims}
		if direction != "" {
			if _, exists := t.current.Port(name.ID); !exists {
				t.current.Ports = append(t.current.Ports, Port{Name: name.ID, Direction: direction, Dims: dims})
			}
			return nil
		}
		t.current.Decls = append(t.current.Decls, t.current.declString("", name.ID, dims)+";")
		return nil
	}

	return t.logicAssign(target, a.Value)
}

// wirePort writes one entry of an instance's port mapping. Integer literals
// are sized to the referenced port's width.
func (t *Transpiler) wirePort(attr *Attribute, value Node) error {
	base, ok := attr.Value.(*Name)
	if !ok {
		return nil
	}
	inst, ok := t.current.Instances[base.ID]
	if !ok {
		return nil
	}
	sub := t.modules[inst.Module]
	port, ok := sub.Port(attr.Attr)
	if !ok {
		t.warnf("module %s has no port %q", inst.Module, attr.Attr)
		return nil
	}
	var rhs string
	if v, ok := intConst(value); ok {
		rhs = formatSized(v, sub.signalWidth(port.Dims))
	} else {
		var err error
		rhs, err = t.emitExpr(value)
		if errors.Is(err, errSkip) {
			log.Debugf("skipping unrecognized wiring of %s.%s", base.ID, attr.Attr)
			return nil
		}
		if err != nil {
			return err
		}
	}
	inst.Mapping[attr.Attr] = rhs
	return nil
}

// instantiate registers an instance of a translated module. Every output
// port materializes a fresh internal signal {lhs}_{port}, pre-bound in the
// port mapping so downstream expressions can read it.
func (t *Transpiler) instantiate(lhs, moduleName string) error {
	sub, ok := t.modules[moduleName]
	if !ok {
		return fmt.Errorf("instantiating unknown module %q", moduleName)
	}
	inst := &Instance{Module: moduleName, Mapping: map[string]string{}}
	t.current.addInstance(lhs, inst)
	for _, p := range sub.Ports {
		if p.Direction != "output" {
			continue
		}
		internal := lhs + "_" + p.Name
		t.current.declare(internal, p.Dims)
		inst.Mapping[p.Name] = internal
	}
	log.Debugf("instance %s of %s in %s", lhs, moduleName, t.current.Name)
	return nil
}

// logicAssign emits a combinational or sequential assignment. An undeclared
// left-hand name becomes an implicit internal signal of the right-hand
// side's inferred width.
func (t *Transpiler) logicAssign(target, value Node) error {
	var lhsName, lhsText string
	switch tgt := target.(type) {
	case *Name:
		lhsName, lhsText = tgt.ID, tgt.ID
	case *Subscript:
		base, ok := tgt.Value.(*Name)
		if !ok {
			return nil
		}
		if _, known := t.current.Symbols[base.ID]; !known {
			t.warnf("assignment to subscript of undeclared signal %q, skipping", base.ID)
			return nil
		}
		lhsName = base.ID
		var err error
		lhsText, err = t.emitSubscript(tgt)
		if errors.Is(err, errSkip) {
			return nil
		}
		if err != nil {
			return err
		}
	default:
		return nil
	}

	rhsWidth, err := t.inferWidth(value)
	if err != nil {
		return err
	}

	sig, declared := t.current.Symbols[lhsName]
	var lhsWidth int
	isEnumLHS := false
	if declared {
		isEnumLHS = sig.Dims.Kind == DimsEnum
		lhsWidth = t.current.signalWidth(sig.Dims)
	} else {
		lhsWidth = rhsWidth
		t.current.declare(lhsName, vectorDims(rhsWidth))
	}

	var rhs string
	if v, ok := t.evalConst(value); ok {
		rhs = formatSized(v, lhsWidth)
	} else {
		rhs, err = t.emitExpr(value)
		if errors.Is(err, errSkip) {
			log.Debugf("skipping unrecognized assignment to %s", lhsName)
			return nil
		}
		if err != nil {
			return err
		}
		if declared && !isEnumLHS && lhsWidth != rhsWidth {
			t.warnf("%q is %d-bit but the expression is %d-bit", lhsName, lhsWidth, rhsWidth)
		}
	}

	if t.clockSpec != "" {
		t.current.Seq[t.clockSpec] = append(t.current.Seq[t.clockSpec], lhsText+" <= "+rhs+";")
	} else {
		t.current.Comb = append(t.current.Comb, lhsText+" = "+rhs+";")
	}
	return nil
}

// visitIf distinguishes clock-edge-sensitive sequential blocks from
// ordinary branching. Inside a sequential block every if is a nested
// branch; at the top level the condition decides.
func (t *Transpiler) visitIf(n *If) error {
	if t.clockSpec == "" {
		if edges := t.extractEdges(n.Test); len(edges) > 0 {
			spec := strings.Join(lo.Map(edges, func(e lo.Tuple2[string, string], _ int) string {
				return e.B + " " + e.A
			}), " or ")
			t.current.ensureSeqBuffer(spec)
			t.clockSpec = spec
			for _, stmt := range n.Body {
				if err := t.visitStmt(stmt); err != nil {
					t.clockSpec = ""
					return err
				}
			}
			t.clockSpec = ""
			return nil
		}
	}
	composite, err := t.lowerIfChain(n)
	if errors.Is(err, errSkip) {
		log.Debugf("skipping if with unrecognized condition")
		return nil
	}
	if err != nil {
		return err
	}
	t.appendStmt(composite)
	return nil
}

// extractEdges collects clock-edge markers from a condition, flattening
// boolean or. Discovery order is preserved: the tuple holds (signal, edge).
func (t *Transpiler) extractEdges(node Node) []lo.Tuple2[string, string] {
	switch n := node.(type) {
	case *Attribute:
		if n.Attr == "posedge" || n.Attr == "negedge" {
			if name, err := t.emitExpr(n.Value); err == nil {
				return []lo.Tuple2[string, string]{lo.T2(name, n.Attr)}
			}
		}
	case *BoolOp:
		if n.Op == "Or" {
			var edges []lo.Tuple2[string, string]
			for _, v := range n.Values {
				edges = append(edges, t.extractEdges(v)...)
			}
			return edges
		}
	}
	return nil
}

// appendStmt writes a finished statement into the active buffer.
func (t *Transpiler) appendStmt(stmt string) {
	if t.clockSpec != "" {
		t.current.Seq[t.clockSpec] = append(t.current.Seq[t.clockSpec], stmt)
	} else {
		t.current.Comb = append(t.current.Comb, stmt)
	}
}

// captureStmts translates a statement list with a fresh active buffer and
// returns the captured lines, restoring the previous buffer in one step so
// surrounding statements cannot be dropped.
func (t *Transpiler) captureStmts(body []Node) ([]string, error) {
	if t.clockSpec != "" {
		saved := t.current.Seq[t.clockSpec]
		t.current.Seq[t.clockSpec] = nil
		err := t.visitAll(body)
		captured := t.current.Seq[t.clockSpec]
		t.current.Seq[t.clockSpec] = saved
		return captured, err
	}
	saved := t.current.Comb
	t.current.Comb = nil
	err := t.visitAll(body)
	captured := t.current.Comb
	t.current.Comb = saved
	return captured, err
}

func (t *Transpiler) visitAll(body []Node) error {
	for _, stmt := range body {
		if err := t.visitStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// lowerIfChain renders an if/elif/else chain as one composite statement.
// An else branch holding exactly one nested if collapses to "else if".
func (t *Transpiler) lowerIfChain(n *If) (string, error) {
	cond, err := t.emitExpr(n.Test)
	if err != nil {
		return "", err
	}
	body, err := t.captureStmts(n.Body)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("if (" + cond + ") begin\n")
	writeIndented(&sb, body)
	sb.WriteString("end")
	if len(n.OrElse) == 1 {
		if elif, ok := n.OrElse[0].(*If); ok && len(t.extractEdges(elif.Test)) == 0 {
			tail, err := t.lowerIfChain(elif)
			if err != nil {
				return "", err
			}
			sb.WriteString(" else " + tail)
			return sb.String(), nil
		}
	}
	if len(n.OrElse) > 0 {
		orelse, err := t.captureStmts(n.OrElse)
		if err != nil {
			return "", err
		}
		sb.WriteString(" else begin\n")
		writeIndented(&sb, orelse)
		sb.WriteString("end")
	}
	return sb.String(), nil
}

// visitMatch lowers a pattern match to a unique case. A wildcard arm
// becomes default; without one an empty default preserves totality.
func (t *Transpiler) visitMatch(n *Match) error {
	subject, err := t.emitExpr(n.Subject)
	if errors.Is(err, errSkip) {
		log.Debugf("skipping match with unrecognized subject")
		return nil
	}
	if err != nil {
		return err
	}
	lines := []string{"unique case (" + subject + ")"}
	hasDefault := false
	for _, c := range n.Cases {
		label, isDefault, err := t.matchPattern(c.Pattern)
		if errors.Is(err, errSkip) {
			t.warnf("unrecognized match pattern, skipping case")
			continue
		}
		if err != nil {
			return err
		}
		body, err := t.captureStmts(c.Body)
		if err != nil {
			return err
		}
		if isDefault {
			hasDefault = true
			label = "default"
		}
		lines = append(lines, "    "+label+": begin")
		for _, stmt := range body {
			for _, line := range strings.Split(stmt, "\n") {
				lines = append(lines, "        "+line)
			}
		}
		lines = append(lines, "    end")
	}
	if !hasDefault {
		lines = append(lines, "    default: begin", "    end")
	}
	lines = append(lines, "endcase")
	t.appendStmt(strings.Join(lines, "\n"))
	return nil
}

func (t *Transpiler) matchPattern(pattern Node) (label string, isDefault bool, err error) {
	switch p := pattern.(type) {
	case *MatchValue:
		label, err = t.emitExpr(p.Value)
		return label, false, err
	case *MatchAs:
		if p.Pattern == nil {
			return "", true, nil
		}
		return t.matchPattern(p.Pattern)
	}
	return "", false, errSkip
}

// visitFor unrolls a statically-bounded range loop, executing the body once
// per iteration with the loop variable bound on the parameter stack.
func (t *Transpiler) visitFor(n *For) error {
	start, stop, step, ok := t.rangeBounds(n.Iter)
	if !ok {
		t.warnf("loop iterator is not a compile-time range, skipping loop")
		return nil
	}
	for v := start; (step > 0 && v < stop) || (step < 0 && v > stop); v += step {
		t.pushParams(paramFrame{n.Target.ID: v})
		err := t.visitAll(n.Body)
		t.popParams()
		if err != nil {
			return err
		}
	}
	return nil
}

// rangeBounds evaluates range(stop), range(start, stop) or
// range(start, stop, step) at compile time.
func (t *Transpiler) rangeBounds(iter Node) (start, stop, step int, ok bool) {
	call, isCall := iter.(*Call)
	if !isCall {
		return 0, 0, 0, false
	}
	fn, isName := call.Func.(*Name)
	if !isName || fn.ID != "range" || len(call.Args) == 0 || len(call.Args) > 3 {
		return 0, 0, 0, false
	}
	args := make([]int, len(call.Args))
	for i, arg := range call.Args {
		v, evaluable := t.evalConst(arg)
		if !evaluable {
			return 0, 0, 0, false
		}
		args[i] = v
	}
	switch len(args) {
	case 1:
		return 0, args[0], 1, true
	case 2:
		return args[0], args[1], 1, true
	default:
		if args[2] == 0 {
			return 0, 0, 0, false
		}
		return args[0], args[1], args[2], true
	}
}

func writeIndented(sb *strings.Builder, stmts []string) {
	for _, stmt := range stmts {
		for _, line := range strings.Split(stmt, "\n") {
			sb.WriteString("    " + line + "\n")
		}
	}
}
