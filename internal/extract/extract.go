// Package extract implements the Extractor (C3): a single CST pass over a
// Python file that produces normalized CMM entities, candidate relations,
// and call sites for later semantic resolution.
package extract

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cmmlang/cx/internal/cmm"
	"github.com/cmmlang/cx/internal/normalize"
	"github.com/cmmlang/cx/internal/parser"
)

// ErrInvalidUTF8 is returned when a file's contents are not valid UTF-8.
var ErrInvalidUTF8 = fmt.Errorf("file is not valid UTF-8")

// Extractor walks a parsed Python file and produces a FileModel plus the
// call sites found in it. It is pure with respect to the store: it never
// touches the database.
type Extractor struct {
	result *parser.ParseResult
	source []byte

	// decorators maps a function_definition/class_definition node's byte
	// offset to the decorator names collected for it in the pre-pass.
	decorators map[uint32][]string
}

// New builds an Extractor over an already-parsed file.
func New(result *parser.ParseResult) *Extractor {
	return &Extractor{
		result:     result,
		source:     result.Source,
		decorators: map[uint32][]string{},
	}
}

// ExtractFile parses path with a fresh Python parser and extracts it.
func ExtractFile(path string) (*cmm.FileModel, []cmm.CallSite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("extract %s: %w", path, err)
	}
	if !utf8.Valid(raw) {
		return nil, nil, fmt.Errorf("extract %s: %w", path, ErrInvalidUTF8)
	}

	p, err := parser.NewParser(parser.Python)
	if err != nil {
		return nil, nil, fmt.Errorf("extract %s: %w", path, err)
	}
	defer p.Close()

	result, err := p.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("extract %s: %w", path, err)
	}
	result.FilePath = path
	defer result.Close()

	model, sites, err := New(result).Extract()
	if err != nil {
		return nil, nil, err
	}

	uri := "file://" + path
	for i := range sites {
		sites[i].FilePath = path
		sites[i].FileURI = uri
	}
	for _, ent := range model.Entities {
		setFilePath(ent, path)
	}

	return model, sites, nil
}

func setFilePath(ent *cmm.Entity, path string) {
	ent.Meta.FilePath = path
	for _, child := range ent.Children {
		setFilePath(child, path)
	}
}

// Extract runs the pre-pass/entity-creation/annotation/nesting pipeline and
// returns the resulting FileModel and call sites.
func (e *Extractor) Extract() (*cmm.FileModel, []cmm.CallSite, error) {
	if e.result.Root == nil {
		return nil, nil, fmt.Errorf("extract: empty parse tree")
	}

	e.collectDecorators(e.result.Root)

	var entities []*cmm.Entity
	var sites []cmm.CallSite

	for i := 0; i < int(e.result.Root.NamedChildCount()); i++ {
		child := e.result.Root.NamedChild(i)
		ent, childSites := e.extractTopLevel(child)
		if ent != nil {
			entities = append(entities, ent)
			sites = append(sites, childSites...)
		}
	}

	return &cmm.FileModel{
		SchemaVersion: cmm.SchemaVersion,
		Entities:      entities,
	}, sites, nil
}

// extractTopLevel handles a single statement at module scope: a class
// definition, a function definition, or a decorated wrapper around either.
func (e *Extractor) extractTopLevel(node *sitter.Node) (*cmm.Entity, []cmm.CallSite) {
	switch node.Type() {
	case "decorated_definition":
		def := node.ChildByFieldName("definition")
		if def == nil {
			return nil, nil
		}
		return e.extractTopLevel(def)
	case "class_definition":
		return e.extractClass(node)
	case "function_definition":
		return e.extractFunction(node, "")
	default:
		return nil, nil
	}
}

func (e *Extractor) nodeDecorators(node *sitter.Node) []string {
	return e.decorators[node.StartByte()]
}

// collectDecorators is the pre-pass: it records every decorator name
// attached to a function or class definition, keyed by that definition
// node's start offset.
func (e *Extractor) collectDecorators(node *sitter.Node) {
	if node.Type() == "decorated_definition" {
		def := node.ChildByFieldName("definition")
		var names []string
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() != "decorator" {
				continue
			}
			names = append(names, e.decoratorName(child))
		}
		if def != nil {
			e.decorators[def.StartByte()] = names
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.collectDecorators(node.NamedChild(i))
	}
}

func (e *Extractor) decoratorName(decorator *sitter.Node) string {
	// decorator's single named child is the expression after '@': an
	// identifier, an attribute, or a call.
	if decorator.NamedChildCount() == 0 {
		return ""
	}
	expr := decorator.NamedChild(0)
	for expr.Type() == "call" {
		fn := expr.ChildByFieldName("function")
		if fn == nil {
			break
		}
		expr = fn
	}
	return e.text(expr)
}

func (e *Extractor) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(e.source)
}

func (e *Extractor) lineRange(node *sitter.Node) (int, int) {
	return int(node.StartPoint().Row), int(node.EndPoint().Row)
}

// extractClass builds the class entity, its nested methods, its
// "inherits" relations (from base classes), and the call sites found in
// its methods.
func (e *Extractor) extractClass(node *sitter.Node) (*cmm.Entity, []cmm.CallSite) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil, nil
	}
	name := e.text(nameNode)
	start, end := e.lineRange(node)

	ent := &cmm.Entity{
		Name:       name,
		Kind:       cmm.KindClass,
		Visibility: normalize.Visibility(name),
		LineStart:  start,
		LineEnd:    end,
		Meta: cmm.Metadata{
			RawDocstring: e.docstring(node),
			Signature:    e.classSignature(node, name),
			Role:         normalize.ClassRole(),
		},
	}

	for _, base := range e.baseClassNames(node) {
		ent.Relations = append(ent.Relations, cmm.Relation{
			ToName:  base,
			RelType: cmm.RelInherits,
		})
	}

	body := node.ChildByFieldName("body")
	var sites []cmm.CallSite
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			child := body.NamedChild(i)
			def := child
			if def.Type() == "decorated_definition" {
				if d := def.ChildByFieldName("definition"); d != nil {
					def = d
				}
			}
			if def.Type() != "function_definition" {
				continue
			}
			method, methodSites := e.extractFunction(def, name)
			if method != nil {
				ent.Children = append(ent.Children, method)
				sites = append(sites, methodSites...)
			}
		}
	}

	return ent, sites
}

func (e *Extractor) baseClassNames(class *sitter.Node) []string {
	superclasses := class.ChildByFieldName("superclasses")
	if superclasses == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(superclasses.NamedChildCount()); i++ {
		arg := superclasses.NamedChild(i)
		if arg.Type() == "keyword_argument" {
			continue // metaclass=... and similar: not a base class
		}
		names = append(names, e.text(arg))
	}
	return names
}

// extractFunction builds the function/method entity, its role and
// method-kind, and the call sites found in its body. className is empty
// for a top-level function.
func (e *Extractor) extractFunction(node *sitter.Node, className string) (*cmm.Entity, []cmm.CallSite) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil, nil
	}
	name := e.text(nameNode)
	start, end := e.lineRange(node)

	decorators := e.nodeDecorators(node)
	methodKind := cmm.MethodInstance
	isMethod := className != ""
	for _, d := range decorators {
		switch d {
		case "staticmethod":
			methodKind = cmm.MethodStatic
		case "classmethod":
			methodKind = cmm.MethodClass
		}
	}

	ent := &cmm.Entity{
		Name:       name,
		Kind:       cmm.KindFunction,
		Visibility: normalize.Visibility(name),
		LineStart:  start,
		LineEnd:    end,
		Meta: cmm.Metadata{
			RawDocstring: e.docstring(node),
			Signature:    e.functionSignature(node, name),
			Role:         normalize.FunctionRole(name),
		},
	}
	if isMethod {
		ent.Meta.MethodKind = methodKind
	}

	body := node.ChildByFieldName("body")
	seen := map[string]bool{}
	var sites []cmm.CallSite
	if body != nil {
		e.walkCalls(body, ent, seen, &sites)
	}

	return ent, sites
}

// walkCalls recursively finds every "call" expression in the subtree,
// recording one "calls" relation per distinct target name and a call site
// for every occurrence of a target. For a bare call (`helper()`) the function identifier
// is the single target. For an attribute call (`calc.add()`), the object and
// the attribute are two separate targets, each recorded independently: this
// is never combined into a dotted "calc.add" name, so a method name resolves
// the same way regardless of which receiver it was called through.
func (e *Extractor) walkCalls(node *sitter.Node, owner *cmm.Entity, seen map[string]bool, sites *[]cmm.CallSite) {
	if node.Type() == "call" {
		fn := node.ChildByFieldName("function")
		if fn != nil {
			for _, target := range e.callTargets(fn) {
				if target.name == "" || isStopped(target.name) {
					continue
				}
				key := target.name + "|" + string(cmm.RelCalls)
				if !seen[key] {
					seen[key] = true
					owner.Relations = append(owner.Relations, cmm.Relation{
						ToName:  target.name,
						RelType: cmm.RelCalls,
					})
				}
				point := target.node.StartPoint()
				*sites = append(*sites, cmm.CallSite{
					Name:      target.name,
					Line:      int(point.Row),
					Character: int(point.Column),
				})
			}
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.walkCalls(node.NamedChild(i), owner, seen, sites)
	}
}

// callTarget is one name captured out of a call's function expression,
// paired with the node its position is taken from.
type callTarget struct {
	name string
	node *sitter.Node
}

// callTargets extracts the target(s) of a call's function expression. A
// bare identifier yields one target. An attribute access yields two: the
// receiver identifier and the attribute identifier, each at its own
// position. An attribute whose object is itself not a plain identifier
// (a chained or computed receiver) yields nothing, matching the query this
// is grounded on, which only matches `identifier.identifier`.
func (e *Extractor) callTargets(fn *sitter.Node) []callTarget {
	switch fn.Type() {
	case "identifier":
		return []callTarget{{name: e.text(fn), node: fn}}
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if obj == nil || attr == nil || obj.Type() != "identifier" {
			return nil
		}
		return []callTarget{
			{name: e.text(obj), node: obj},
			{name: e.text(attr), node: attr},
		}
	default:
		return nil
	}
}

// docstring returns the text of the first string-literal statement inside
// node's body, or "" if there is none.
func (e *Extractor) docstring(node *sitter.Node) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	expr := first.NamedChild(0)
	if expr.Type() != "string" {
		return ""
	}
	return strings.Trim(e.text(expr), "\"'")
}

func (e *Extractor) classSignature(node *sitter.Node, name string) string {
	bases := e.baseClassNames(node)
	if len(bases) == 0 {
		return fmt.Sprintf("class %s:", name)
	}
	return fmt.Sprintf("class %s(%s):", name, strings.Join(bases, ", "))
}

func (e *Extractor) functionSignature(node *sitter.Node, name string) string {
	params := node.ChildByFieldName("parameters")
	paramText := "()"
	if params != nil {
		paramText = e.text(params)
	}
	ret := ""
	if r := node.ChildByFieldName("return_type"); r != nil {
		ret = " -> " + e.text(r)
	}
	return fmt.Sprintf("def %s%s%s:", name, paramText, ret)
}
