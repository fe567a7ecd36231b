// Package golang extracts code topology from Go source files:
// packages become modules, structs and interfaces become types, and
// functions and methods become callables.
package golang

import (
	"errors"
	"path"
	"strings"
	"unicode"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/AperturePlus/synapse/internal/adapter"
	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/lang"
	"github.com/AperturePlus/synapse/internal/parser"
	"github.com/AperturePlus/synapse/internal/symtab"
)

var errMissingPackage = errors.New("no package clause")

// Adapter scans Go files. The module path from go.mod anchors package
// qualified names so they match import paths.
type Adapter struct {
	modulePath string
}

// New returns a Go adapter rooted at the given module path.
func New(modulePath string) *Adapter {
	return &Adapter{modulePath: modulePath}
}

func (a *Adapter) Language() lang.Language { return lang.Go }

type fileScan struct {
	project string
	file    adapter.SourceFile
	source  []byte
	pkgPath string
	res     *adapter.FileResult
}

// Scan parses one Go file and extracts its definitions and raw
// references.
func (a *Adapter) Scan(project string, file adapter.SourceFile) (*adapter.FileResult, error) {
	tree, err := parser.Parse(lang.Go, file.Content)
	if err != nil {
		return nil, &adapter.ParseError{Path: file.RelPath, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	pkgName := packageName(root, file.Content)
	if pkgName == "" {
		return nil, &adapter.ParseError{Path: file.RelPath, Err: errMissingPackage}
	}

	fs := &fileScan{
		project: project,
		file:    file,
		source:  file.Content,
		pkgPath: a.packagePath(file.RelPath),
		res: &adapter.FileResult{
			File: file,
			IR:   ir.New(project),
			Ctx: symtab.FileContext{
				Language: lang.Go,
				Imports:  make(map[string]string),
			},
		},
	}
	fs.res.Ctx.ModuleQN = fs.pkgPath

	moduleID := ir.ModuleID(project, lang.Go, fs.pkgPath)
	fs.res.IR.AddModule(&ir.Module{
		ID:            moduleID,
		QualifiedName: fs.pkgPath,
		Name:          pkgName,
		Language:      lang.Go,
		Path:          path.Dir(file.RelPath),
	})

	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		switch node.Kind() {
		case "import_declaration":
			fs.scanImports(node, moduleID)
		case "type_declaration":
			fs.scanTypeDecl(node, moduleID)
		case "function_declaration":
			fs.scanFunction(node, moduleID)
		case "method_declaration":
			fs.scanMethod(node, moduleID)
		}
	}
	return fs.res, nil
}

// packagePath maps a file's directory onto an import path under the
// module root.
func (a *Adapter) packagePath(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" {
		return a.modulePath
	}
	return a.modulePath + "/" + dir
}

func (fs *fileScan) text(node *tree_sitter.Node) string {
	return parser.NodeText(node, fs.source)
}

func (fs *fileScan) scanImports(decl *tree_sitter.Node, moduleID string) {
	parser.Walk(decl, func(node *tree_sitter.Node) bool {
		if node.Kind() != "import_spec" {
			return true
		}
		pathNode := node.ChildByFieldName("path")
		if pathNode == nil {
			return false
		}
		importPath := strings.Trim(fs.text(pathNode), `"`)
		alias := path.Base(importPath)
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			alias = fs.text(nameNode)
		}
		if alias != "_" && alias != "." {
			fs.res.Ctx.Imports[alias] = importPath
		}
		fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
			Kind:     adapter.RefImport,
			Rel:      ir.RelImports,
			SourceID: moduleID,
			Name:     importPath,
			Line:     int(node.StartPosition().Row) + 1,
		})
		return false
	})
}

func (fs *fileScan) scanTypeDecl(decl *tree_sitter.Node, moduleID string) {
	for i := uint(0); i < decl.NamedChildCount(); i++ {
		spec := decl.NamedChild(i)
		if spec.Kind() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		typeNode := spec.ChildByFieldName("type")
		if nameNode == nil || typeNode == nil {
			continue
		}
		name := fs.text(nameNode)
		qn := fs.pkgPath + "." + name

		var kind ir.TypeKind
		switch typeNode.Kind() {
		case "struct_type":
			kind = ir.TypeStruct
		case "interface_type":
			kind = ir.TypeInterface
		default:
			// Aliases and defined basic types carry no topology.
			continue
		}

		typeID := ir.TypeID(fs.project, lang.Go, qn)
		fs.res.IR.AddType(&ir.Type{
			ID:            typeID,
			QualifiedName: qn,
			Name:          name,
			Kind:          kind,
			Language:      lang.Go,
			Visibility:    goVisibility(name),
			ModuleID:      moduleID,
			FilePath:      fs.file.RelPath,
			StartLine:     int(spec.StartPosition().Row) + 1,
			EndLine:       int(spec.EndPosition().Row) + 1,
		})
		fs.res.IR.AddRelationship(ir.Relationship{SourceID: moduleID, TargetID: typeID, Type: ir.RelContains})

		switch kind {
		case ir.TypeStruct:
			fs.scanStructEmbeds(typeNode, typeID)
		case ir.TypeInterface:
			fs.scanInterfaceEmbeds(typeNode, typeID)
		}
	}
}

// scanStructEmbeds collects embedded fields: field declarations with a
// type but no field name.
func (fs *fileScan) scanStructEmbeds(structType *tree_sitter.Node, typeID string) {
	parser.Walk(structType, func(node *tree_sitter.Node) bool {
		if node.Kind() != "field_declaration" {
			return true
		}
		if node.ChildByFieldName("name") != nil {
			return false
		}
		typeNode := node.ChildByFieldName("type")
		if typeNode == nil {
			return false
		}
		fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
			Kind:     adapter.RefType,
			Rel:      ir.RelEmbeds,
			SourceID: typeID,
			Name:     bareTypeName(fs.text(typeNode)),
			Line:     int(node.StartPosition().Row) + 1,
		})
		return false
	})
}

// scanInterfaceEmbeds collects interfaces embedded at the top level of
// an interface body.
func (fs *fileScan) scanInterfaceEmbeds(ifaceType *tree_sitter.Node, typeID string) {
	for i := uint(0); i < ifaceType.NamedChildCount(); i++ {
		node := ifaceType.NamedChild(i)
		if node.Kind() != "type_identifier" && node.Kind() != "qualified_type" {
			continue
		}
		fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
			Kind:     adapter.RefType,
			Rel:      ir.RelExtends,
			SourceID: typeID,
			Name:     bareTypeName(fs.text(node)),
			Line:     int(node.StartPosition().Row) + 1,
		})
	}
}

func (fs *fileScan) scanFunction(decl *tree_sitter.Node, moduleID string) {
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := fs.text(nameNode)
	qn := fs.pkgPath + "." + name
	sig := fs.buildSignature(decl.ChildByFieldName("parameters"))

	callableID := ir.CallableID(fs.project, lang.Go, qn, sig)
	fs.res.IR.AddCallable(&ir.Callable{
		ID:            callableID,
		QualifiedName: qn,
		Name:          name,
		Kind:          ir.CallableFunction,
		Signature:     sig,
		Language:      lang.Go,
		Visibility:    goVisibility(name),
		ModuleID:      moduleID,
		FilePath:      fs.file.RelPath,
		StartLine:     int(decl.StartPosition().Row) + 1,
		EndLine:       int(decl.EndPosition().Row) + 1,
	})
	fs.res.IR.AddRelationship(ir.Relationship{SourceID: moduleID, TargetID: callableID, Type: ir.RelContains})
	fs.scanCalls(decl.ChildByFieldName("body"), callableID, "")
}

func (fs *fileScan) scanMethod(decl *tree_sitter.Node, moduleID string) {
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	recv := fs.receiverTypeName(decl.ChildByFieldName("receiver"))
	if recv == "" {
		return
	}
	name := fs.text(nameNode)
	recvQN := fs.pkgPath + "." + recv
	qn := recvQN + "." + name
	sig := fs.buildSignature(decl.ChildByFieldName("parameters"))

	callableID := ir.CallableID(fs.project, lang.Go, qn, sig)
	fs.res.IR.AddCallable(&ir.Callable{
		ID:            callableID,
		QualifiedName: qn,
		Name:          name,
		Kind:          ir.CallableMethod,
		Signature:     sig,
		Language:      lang.Go,
		Visibility:    goVisibility(name),
		ModuleID:      moduleID,
		TypeID:        ir.TypeID(fs.project, lang.Go, recvQN),
		FilePath:      fs.file.RelPath,
		StartLine:     int(decl.StartPosition().Row) + 1,
		EndLine:       int(decl.EndPosition().Row) + 1,
	})
	// The receiver type may live in another file of the package; its
	// id is deterministic so the edge can be emitted directly.
	fs.res.IR.AddRelationship(ir.Relationship{
		SourceID: ir.TypeID(fs.project, lang.Go, recvQN),
		TargetID: callableID,
		Type:     ir.RelContains,
	})
	fs.scanCalls(decl.ChildByFieldName("body"), callableID, recvQN)
}

// receiverTypeName extracts the bare receiver type from a method's
// receiver list, dropping pointers and type parameters.
func (fs *fileScan) receiverTypeName(recv *tree_sitter.Node) string {
	if recv == nil {
		return ""
	}
	var typeText string
	parser.Walk(recv, func(node *tree_sitter.Node) bool {
		if node.Kind() == "parameter_declaration" {
			if t := node.ChildByFieldName("type"); t != nil {
				typeText = fs.text(t)
			}
			return false
		}
		return true
	})
	return bareTypeName(typeText)
}

func (fs *fileScan) scanCalls(body *tree_sitter.Node, callableID, enclosingTypeQN string) {
	if body == nil {
		return
	}
	parser.Walk(body, func(node *tree_sitter.Node) bool {
		if node.Kind() != "call_expression" {
			return true
		}
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return true
		}
		var name string
		switch fn.Kind() {
		case "identifier":
			name = fs.text(fn)
		case "selector_expression":
			operand := fn.ChildByFieldName("operand")
			field := fn.ChildByFieldName("field")
			if operand == nil || field == nil {
				return true
			}
			// Only flat selectors resolve: pkg.Fn or value.Method
			// on a receiver declared in this project.
			if operand.Kind() != "identifier" {
				return true
			}
			name = fs.text(operand) + "." + fs.text(field)
		default:
			return true
		}
		argc := 0
		if args := node.ChildByFieldName("arguments"); args != nil {
			argc = int(args.NamedChildCount())
		}
		fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
			Kind:            adapter.RefCall,
			Rel:             ir.RelCalls,
			SourceID:        callableID,
			Name:            name,
			EnclosingTypeQN: enclosingTypeQN,
			Argc:            argc,
			Line:            int(node.StartPosition().Row) + 1,
		})
		return true
	})
}

// buildSignature renders a parameter list as "(t1, t2, ...)". A
// declaration with several names and one type repeats the type once
// per name.
func (fs *fileScan) buildSignature(params *tree_sitter.Node) string {
	if params == nil {
		return "()"
	}
	var types []string
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		switch p.Kind() {
		case "parameter_declaration":
			typeNode := p.ChildByFieldName("type")
			if typeNode == nil {
				continue
			}
			typeText := fs.text(typeNode)
			names := 0
			for j := uint(0); j < p.NamedChildCount(); j++ {
				if p.NamedChild(j).Kind() == "identifier" {
					names++
				}
			}
			if names == 0 {
				names = 1
			}
			for n := 0; n < names; n++ {
				types = append(types, typeText)
			}
		case "variadic_parameter_declaration":
			if typeNode := p.ChildByFieldName("type"); typeNode != nil {
				types = append(types, "..."+fs.text(typeNode))
			}
		}
	}
	return "(" + strings.Join(types, ", ") + ")"
}

func packageName(root *tree_sitter.Node, source []byte) string {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		if node.Kind() != "package_clause" {
			continue
		}
		for j := uint(0); j < node.NamedChildCount(); j++ {
			if child := node.NamedChild(j); child.Kind() == "package_identifier" {
				return parser.NodeText(child, source)
			}
		}
	}
	return ""
}

// bareTypeName strips pointers, generic arguments, and package
// qualifiers down to the referenced type name as used for resolution.
func bareTypeName(typeText string) string {
	s := strings.TrimSpace(typeText)
	s = strings.TrimLeft(s, "*")
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func goVisibility(name string) ir.Visibility {
	if name == "" {
		return ir.VisibilityPrivate
	}
	for _, r := range name {
		if unicode.IsUpper(r) {
			return ir.VisibilityPublic
		}
		return ir.VisibilityPrivate
	}
	return ir.VisibilityPrivate
}
