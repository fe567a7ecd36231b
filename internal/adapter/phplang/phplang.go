// Package phplang extracts code topology from PHP source files:
// namespaces become modules, classes, interfaces, and traits become
// types, and functions and methods become callables.
package phplang

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/AperturePlus/synapse/internal/adapter"
	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/lang"
	"github.com/AperturePlus/synapse/internal/parser"
	"github.com/AperturePlus/synapse/internal/symtab"
)

// globalNamespace labels entities declared outside any namespace.
const globalNamespace = `\`

// Adapter scans PHP files.
type Adapter struct{}

// New returns a PHP adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Language() lang.Language { return lang.PHP }

type fileScan struct {
	project  string
	file     adapter.SourceFile
	source   []byte
	ns       string
	moduleID string
	res      *adapter.FileResult
}

// Scan parses one PHP file and extracts its definitions and raw
// references.
func (a *Adapter) Scan(project string, file adapter.SourceFile) (*adapter.FileResult, error) {
	tree, err := parser.Parse(lang.PHP, file.Content)
	if err != nil {
		return nil, &adapter.ParseError{Path: file.RelPath, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	fs := &fileScan{
		project: project,
		file:    file,
		source:  file.Content,
		res: &adapter.FileResult{
			File: file,
			IR:   ir.New(project),
			Ctx: symtab.FileContext{
				Language: lang.PHP,
				Imports:  make(map[string]string),
			},
		},
	}

	fs.ns = fs.findNamespace(root)
	fs.res.Ctx.ModuleQN = fs.ns

	moduleQN, moduleName := fs.ns, lastSegment(fs.ns)
	if moduleQN == "" {
		moduleQN, moduleName = globalNamespace, globalNamespace
	}
	fs.moduleID = ir.ModuleID(project, lang.PHP, moduleQN)
	fs.res.IR.AddModule(&ir.Module{
		ID:            fs.moduleID,
		QualifiedName: moduleQN,
		Name:          moduleName,
		Language:      lang.PHP,
	})

	fs.scanStatements(root)
	return fs.res, nil
}

func (fs *fileScan) text(node *tree_sitter.Node) string {
	return parser.NodeText(node, fs.source)
}

// scanStatements walks top-level statements, descending into a braced
// namespace body when present.
func (fs *fileScan) scanStatements(node *tree_sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "namespace_definition":
			if body := child.ChildByFieldName("body"); body != nil {
				fs.scanStatements(body)
			}
		case "namespace_use_declaration":
			fs.scanUse(child)
		case "class_declaration":
			fs.scanClassLike(child, ir.TypeClass)
		case "interface_declaration":
			fs.scanClassLike(child, ir.TypeInterface)
		case "trait_declaration":
			fs.scanClassLike(child, ir.TypeTrait)
		case "function_definition":
			fs.scanFunction(child)
		}
	}
}

func (fs *fileScan) findNamespace(root *tree_sitter.Node) string {
	var ns string
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if node.Kind() == "namespace_definition" {
			if name := node.ChildByFieldName("name"); name != nil && ns == "" {
				ns = fs.text(name)
			}
			return false
		}
		return true
	})
	return ns
}

func (fs *fileScan) scanUse(node *tree_sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		clause := node.NamedChild(i)
		if clause.Kind() != "namespace_use_clause" {
			continue
		}
		var fqn, alias string
		for j := uint(0); j < clause.NamedChildCount(); j++ {
			child := clause.NamedChild(j)
			switch child.Kind() {
			case "qualified_name", "name":
				fqn = strings.TrimPrefix(fs.text(child), globalNamespace)
			case "namespace_aliasing_clause":
				for k := uint(0); k < child.NamedChildCount(); k++ {
					if child.NamedChild(k).Kind() == "name" {
						alias = fs.text(child.NamedChild(k))
					}
				}
			}
		}
		if fqn == "" {
			continue
		}
		if alias == "" {
			alias = lastSegment(fqn)
		}
		fs.res.Ctx.Imports[alias] = fqn
		if pkg := parentSegments(fqn); pkg != "" {
			fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
				Kind:     adapter.RefImport,
				Rel:      ir.RelImports,
				SourceID: fs.moduleID,
				Name:     pkg,
				Line:     int(clause.StartPosition().Row) + 1,
			})
		}
	}
}

func (fs *fileScan) scanClassLike(node *tree_sitter.Node, kind ir.TypeKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := fs.text(nameNode)
	qn := joinNS(fs.ns, name)

	typeID := ir.TypeID(fs.project, lang.PHP, qn)
	fs.res.IR.AddType(&ir.Type{
		ID:            typeID,
		QualifiedName: qn,
		Name:          name,
		Kind:          kind,
		Language:      lang.PHP,
		Visibility:    ir.VisibilityPublic,
		ModuleID:      fs.moduleID,
		FilePath:      fs.file.RelPath,
		StartLine:     int(node.StartPosition().Row) + 1,
		EndLine:       int(node.EndPosition().Row) + 1,
	})
	fs.res.IR.AddRelationship(ir.Relationship{SourceID: fs.moduleID, TargetID: typeID, Type: ir.RelContains})

	fs.scanHeritage(node, typeID, kind)
	parentName := ""
	if kind == ir.TypeClass {
		parentName = fs.baseClassName(node)
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		switch member.Kind() {
		case "method_declaration":
			fs.scanMethod(member, typeID, qn, parentName)
		case "use_declaration":
			// Trait use inside a class body.
			for j := uint(0); j < member.NamedChildCount(); j++ {
				child := member.NamedChild(j)
				if child.Kind() == "name" || child.Kind() == "qualified_name" {
					fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
						Kind:     adapter.RefType,
						Rel:      ir.RelEmbeds,
						SourceID: typeID,
						Name:     strings.TrimPrefix(fs.text(child), globalNamespace),
						Line:     int(child.StartPosition().Row) + 1,
					})
				}
			}
		}
	}
}

// baseClassName returns the class named in the extends clause, if any.
func (fs *fileScan) baseClassName(node *tree_sitter.Node) string {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		clause := node.NamedChild(i)
		if clause.Kind() != "base_clause" {
			continue
		}
		for j := uint(0); j < clause.NamedChildCount(); j++ {
			child := clause.NamedChild(j)
			if child.Kind() == "name" || child.Kind() == "qualified_name" {
				return strings.TrimPrefix(fs.text(child), globalNamespace)
			}
		}
	}
	return ""
}

// scanHeritage emits extends and implements references from the class
// header clauses.
func (fs *fileScan) scanHeritage(node *tree_sitter.Node, typeID string, kind ir.TypeKind) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		clause := node.NamedChild(i)
		var rel ir.RelType
		switch clause.Kind() {
		case "base_clause":
			rel = ir.RelExtends
		case "class_interface_clause":
			rel = ir.RelImplements
		default:
			continue
		}
		if kind == ir.TypeInterface {
			rel = ir.RelExtends
		}
		for j := uint(0); j < clause.NamedChildCount(); j++ {
			child := clause.NamedChild(j)
			if child.Kind() != "name" && child.Kind() != "qualified_name" {
				continue
			}
			fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
				Kind:     adapter.RefType,
				Rel:      rel,
				SourceID: typeID,
				Name:     strings.TrimPrefix(fs.text(child), globalNamespace),
				Line:     int(child.StartPosition().Row) + 1,
			})
		}
	}
}

func (fs *fileScan) scanMethod(node *tree_sitter.Node, typeID, typeQN, parentName string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := fs.text(nameNode)
	kind := ir.CallableMethod
	if name == "__construct" {
		kind = ir.CallableConstructor
	}
	sig := fs.buildSignature(node.ChildByFieldName("parameters"))
	qn := typeQN + globalNamespace + name

	callableID := ir.CallableID(fs.project, lang.PHP, qn, sig)
	fs.res.IR.AddCallable(&ir.Callable{
		ID:            callableID,
		QualifiedName: qn,
		Name:          name,
		Kind:          kind,
		Signature:     sig,
		Language:      lang.PHP,
		Visibility:    methodVisibility(node, fs.source),
		ModuleID:      fs.moduleID,
		TypeID:        typeID,
		FilePath:      fs.file.RelPath,
		StartLine:     int(node.StartPosition().Row) + 1,
		EndLine:       int(node.EndPosition().Row) + 1,
	})
	fs.res.IR.AddRelationship(ir.Relationship{SourceID: typeID, TargetID: callableID, Type: ir.RelContains})
	fs.scanCalls(node.ChildByFieldName("body"), callableID, typeQN, parentName)
}

func (fs *fileScan) scanFunction(node *tree_sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := fs.text(nameNode)
	sig := fs.buildSignature(node.ChildByFieldName("parameters"))
	qn := joinNS(fs.ns, name)

	callableID := ir.CallableID(fs.project, lang.PHP, qn, sig)
	fs.res.IR.AddCallable(&ir.Callable{
		ID:            callableID,
		QualifiedName: qn,
		Name:          name,
		Kind:          ir.CallableFunction,
		Signature:     sig,
		Language:      lang.PHP,
		Visibility:    ir.VisibilityPublic,
		ModuleID:      fs.moduleID,
		FilePath:      fs.file.RelPath,
		StartLine:     int(node.StartPosition().Row) + 1,
		EndLine:       int(node.EndPosition().Row) + 1,
	})
	fs.res.IR.AddRelationship(ir.Relationship{SourceID: fs.moduleID, TargetID: callableID, Type: ir.RelContains})
	fs.scanCalls(node.ChildByFieldName("body"), callableID, "", "")
}

func (fs *fileScan) scanCalls(body *tree_sitter.Node, callableID, enclosingTypeQN, parentName string) {
	if body == nil {
		return
	}
	parser.Walk(body, func(node *tree_sitter.Node) bool {
		switch node.Kind() {
		case "function_call_expression":
			fn := node.ChildByFieldName("function")
			if fn == nil || (fn.Kind() != "name" && fn.Kind() != "qualified_name") {
				return true
			}
			fs.addCall(callableID, enclosingTypeQN,
				strings.TrimPrefix(fs.text(fn), globalNamespace),
				node.ChildByFieldName("arguments"), node)
		case "member_call_expression":
			obj := node.ChildByFieldName("object")
			nameNode := node.ChildByFieldName("name")
			if obj == nil || nameNode == nil {
				return true
			}
			// Only $this dispatch resolves statically.
			if fs.text(obj) != "$this" || enclosingTypeQN == "" {
				return true
			}
			fs.addCall(callableID, enclosingTypeQN, fs.text(nameNode),
				node.ChildByFieldName("arguments"), node)
		case "scoped_call_expression":
			scope := node.ChildByFieldName("scope")
			nameNode := node.ChildByFieldName("name")
			if scope == nil || nameNode == nil {
				return true
			}
			scopeName := strings.TrimPrefix(fs.text(scope), globalNamespace)
			if scopeName == "self" || scopeName == "static" {
				fs.addCall(callableID, enclosingTypeQN, fs.text(nameNode),
					node.ChildByFieldName("arguments"), node)
				return true
			}
			if scopeName == "parent" {
				// parent:: targets the extends clause, not the
				// enclosing type's own override.
				if parentName != "" {
					fs.addCall(callableID, "",
						parentName+globalNamespace+fs.text(nameNode),
						node.ChildByFieldName("arguments"), node)
				} else {
					fs.addCall(callableID, enclosingTypeQN, fs.text(nameNode),
						node.ChildByFieldName("arguments"), node)
				}
				return true
			}
			fs.addCall(callableID, enclosingTypeQN,
				scopeName+globalNamespace+fs.text(nameNode),
				node.ChildByFieldName("arguments"), node)
		case "object_creation_expression":
			for i := uint(0); i < node.NamedChildCount(); i++ {
				child := node.NamedChild(i)
				if child.Kind() != "name" && child.Kind() != "qualified_name" {
					continue
				}
				typeName := strings.TrimPrefix(fs.text(child), globalNamespace)
				fs.addCall(callableID, enclosingTypeQN,
					typeName+globalNamespace+"__construct",
					node.ChildByFieldName("arguments"), node)
				break
			}
		}
		return true
	})
}

func (fs *fileScan) addCall(callableID, enclosingTypeQN, name string, args, site *tree_sitter.Node) {
	argc := 0
	if args != nil {
		argc = int(args.NamedChildCount())
	}
	fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
		Kind:            adapter.RefCall,
		Rel:             ir.RelCalls,
		SourceID:        callableID,
		Name:            name,
		EnclosingTypeQN: enclosingTypeQN,
		Argc:            argc,
		Line:            int(site.StartPosition().Row) + 1,
	})
}

// buildSignature renders parameters as "(string, App\Thing, mixed)".
// Untyped parameters render as mixed.
func (fs *fileScan) buildSignature(params *tree_sitter.Node) string {
	if params == nil {
		return "()"
	}
	var types []string
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		switch p.Kind() {
		case "simple_parameter", "property_promotion_parameter":
			if t := p.ChildByFieldName("type"); t != nil {
				types = append(types, strings.TrimPrefix(fs.text(t), globalNamespace))
			} else {
				types = append(types, "mixed")
			}
		case "variadic_parameter":
			if t := p.ChildByFieldName("type"); t != nil {
				types = append(types, strings.TrimPrefix(fs.text(t), globalNamespace)+"...")
			} else {
				types = append(types, "mixed...")
			}
		}
	}
	return "(" + strings.Join(types, ", ") + ")"
}

func methodVisibility(node *tree_sitter.Node, source []byte) ir.Visibility {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "visibility_modifier" {
			continue
		}
		switch parser.NodeText(child, source) {
		case "private":
			return ir.VisibilityPrivate
		case "protected":
			return ir.VisibilityProtected
		}
		return ir.VisibilityPublic
	}
	return ir.VisibilityPublic
}

func joinNS(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + globalNamespace + name
}

func lastSegment(qn string) string {
	if i := strings.LastIndex(qn, globalNamespace); i >= 0 {
		return qn[i+1:]
	}
	return qn
}

func parentSegments(qn string) string {
	if i := strings.LastIndex(qn, globalNamespace); i >= 0 {
		return qn[:i]
	}
	return ""
}
