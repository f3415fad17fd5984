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
	"sort"
	"strings"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// moduleTemplate is a deferred, parameterized class definition. Concrete
// modules are synthesized from it on demand, one per distinct keyword
// binding.
type moduleTemplate struct {
	def  *ClassDef
	free []string
}

// templateBuiltins are names the free-name detector never treats as
// parameters.
var templateBuiltins = map[string]struct{}{
	"bit":    {},
	"In":     {},
	"Out":    {},
	"Module": {},
	"Enum":   {},
	"range":  {},
	"True":   {},
	"False":  {},
	"None":   {},
	"not":    {},
	"and":    {},
	"or":     {},
	"len":    {},
	"int":    {},
	"min":    {},
	"max":    {},
}

// freeNames decides whether a class definition is parameterized: any name
// read in the body that is neither defined by the body itself, a builtin,
// nor a known template or module marks it as a template.
func (t *Transpiler) freeNames(def *ClassDef) []string {
	defined := map[string]struct{}{def.Name: {}}
	collectDefined(def.Body, defined)
	loads := map[string]struct{}{}
	collectStmtLoads(def.Body, loads)

	var free []string
	for name := range loads {
		if _, ok := defined[name]; ok {
			continue
		}
		if _, ok := templateBuiltins[name]; ok {
			continue
		}
		if _, ok := t.templates[name]; ok {
			continue
		}
		if _, ok := t.modules[name]; ok {
			continue
		}
		if _, ok := t.globalEnums[name]; ok {
			continue
		}
		free = append(free, name)
	}
	sort.Strings(free)
	return free
}

// collectDefined gathers names the class body itself binds: assignment
// targets (simple names only), loop variables, and nested class names,
// recursively through control flow.
func collectDefined(body []Node, defined map[string]struct{}) {
	for _, stmt := range body {
		switch n := stmt.(type) {
		case *Assign:
			for _, target := range n.Targets {
				if name, ok := target.(*Name); ok {
					defined[name.ID] = struct{}{}
				}
			}
		case *For:
			defined[n.Target.ID] = struct{}{}
			collectDefined(n.Body, defined)
		case *If:
			collectDefined(n.Body, defined)
			collectDefined(n.OrElse, defined)
		case *Match:
			for _, c := range n.Cases {
				collectDefined(c.Body, defined)
			}
		case *ClassDef:
			defined[n.Name] = struct{}{}
		}
	}
}

// collectStmtLoads gathers every name read in value position.
func collectStmtLoads(body []Node, loads map[string]struct{}) {
	for _, stmt := range body {
		switch n := stmt.(type) {
		case *Assign:
			for _, target := range n.Targets {
				if _, ok := target.(*Name); !ok {
					// Subscript and attribute targets read their base
					// and index expressions.
					collectExprLoads(target, loads)
				}
			}
			collectExprLoads(n.Value, loads)
		case *ExprStmt:
			collectExprLoads(n.Value, loads)
		case *For:
			collectExprLoads(n.Iter, loads)
			collectStmtLoads(n.Body, loads)
		case *If:
			collectExprLoads(n.Test, loads)
			collectStmtLoads(n.Body, loads)
			collectStmtLoads(n.OrElse, loads)
		case *Match:
			collectExprLoads(n.Subject, loads)
			for _, c := range n.Cases {
				collectExprLoads(c.Pattern, loads)
				collectStmtLoads(c.Body, loads)
			}
		}
	}
}

func collectExprLoads(node Node, loads map[string]struct{}) {
	switch n := node.(type) {
	case nil:
	case *Name:
		if n.Ctx != "Store" {
			loads[n.ID] = struct{}{}
		}
	case *BinOp:
		collectExprLoads(n.Left, loads)
		collectExprLoads(n.Right, loads)
	case *BoolOp:
		for _, v := range n.Values {
			collectExprLoads(v, loads)
		}
	case *UnaryOp:
		collectExprLoads(n.Operand, loads)
	case *Compare:
		collectExprLoads(n.Left, loads)
		for _, c := range n.Comparators {
			collectExprLoads(c, loads)
		}
	case *IfExp:
		collectExprLoads(n.Test, loads)
		collectExprLoads(n.Body, loads)
		collectExprLoads(n.OrElse, loads)
	case *Subscript:
		collectExprLoads(n.Value, loads)
		collectExprLoads(n.Index, loads)
	case *Slice:
		collectExprLoads(n.Lower, loads)
		collectExprLoads(n.Upper, loads)
	case *Attribute:
		collectExprLoads(n.Value, loads)
	case *Tuple:
		for _, elt := range n.Elts {
			collectExprLoads(elt, loads)
		}
	case *Call:
		collectExprLoads(n.Func, loads)
		for _, arg := range n.Args {
			collectExprLoads(arg, loads)
		}
		for _, kw := range n.Keywords {
			collectExprLoads(kw.Value, loads)
		}
	case *MatchValue:
		collectExprLoads(n.Value, loads)
	case *MatchAs:
		collectExprLoads(n.Pattern, loads)
	}
}

// instantiateTemplate synthesizes (or reuses) a concrete module for the
// keyword-argument binding of a template call, then registers an instance
// of it under the assignment target.
func (t *Transpiler) instantiateTemplate(target Node, tmpl *moduleTemplate, call *Call) error {
	lhs, ok := target.(*Name)
	if !ok {
		return nil
	}
	base := tmpl.def.Name
	params := make([]lo.Tuple2[string, int], 0, len(call.Keywords))
	for _, kw := range call.Keywords {
		v, evaluable := t.evalConst(kw.Value)
		if !evaluable {
			t.warnf("parameter %q of %s is not a compile-time integer, skipping instantiation", kw.Arg, base)
			return nil
		}
		params = append(params, lo.T2(kw.Arg, v))
	}

	key := paramSetKey(base, params)
	moduleName, done := t.monomorphs[key]
	if !done {
		moduleName = mangleName(base, params)
		t.monomorphs[key] = moduleName
		frame := paramFrame{}
		for _, p := range params {
			frame[p.A] = p.B
		}
		t.pushParams(frame)
		_, err := t.translateModule(moduleName, tmpl.def.Body)
		t.popParams()
		if err != nil {
			return err
		}
		log.Debugf("monomorphized %s as %s", base, moduleName)
	}
	return t.instantiate(lhs.ID, moduleName)
}

// paramSetKey identifies a binding set independent of keyword order.
func paramSetKey(base string, params []lo.Tuple2[string, int]) string {
	parts := lo.Map(params, func(p lo.Tuple2[string, int], _ int) string {
		return fmt.Sprintf("%s=%d", p.A, p.B)
	})
	sort.Strings(parts)
	return base + "|" + strings.Join(parts, ",")
}

// mangleName derives the generated module name from the keyword order of
// the instantiation that first synthesized it.
func mangleName(base string, params []lo.Tuple2[string, int]) string {
	if len(params) == 0 {
		return base
	}
	parts := lo.Map(params, func(p lo.Tuple2[string, int], _ int) string {
		if p.B < 0 {
			return fmt.Sprintf("%sn%d", p.A, -p.B)
		}
		return fmt.Sprintf("%s%d", p.A, p.B)
	})
	return base + "_" + strings.Join(parts, "_")
}
