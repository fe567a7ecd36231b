// Package javalang extracts code topology from Java source files:
// packages become modules, classes, interfaces, enums, and records
// become types, and methods and constructors become callables.
package javalang

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/AperturePlus/synapse/internal/adapter"
	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/lang"
	"github.com/AperturePlus/synapse/internal/parser"
	"github.com/AperturePlus/synapse/internal/symtab"
)

// Adapter scans Java files.
type Adapter struct{}

// New returns a Java adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Language() lang.Language { return lang.Java }

type fileScan struct {
	project string
	file    adapter.SourceFile
	source  []byte
	pkg     string
	res     *adapter.FileResult
}

// Scan parses one Java file and extracts its definitions and raw
// references.
func (a *Adapter) Scan(project string, file adapter.SourceFile) (*adapter.FileResult, error) {
	tree, err := parser.Parse(lang.Java, file.Content)
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
				Language: lang.Java,
				Imports:  make(map[string]string),
			},
		},
	}

	fs.pkg = packageName(root, file.Content)
	fs.res.Ctx.ModuleQN = fs.pkg

	// Files in the default package hang off a synthetic module so
	// their types still have a container.
	moduleQN, moduleName := fs.pkg, lastSegment(fs.pkg)
	if moduleQN == "" {
		moduleQN, moduleName = "default", "default"
	}
	moduleID := ir.ModuleID(project, lang.Java, moduleQN)
	fs.res.IR.AddModule(&ir.Module{
		ID:            moduleID,
		QualifiedName: moduleQN,
		Name:          moduleName,
		Language:      lang.Java,
	})

	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		switch node.Kind() {
		case "import_declaration":
			fs.scanImport(node, moduleID)
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			fs.scanType(node, moduleID, fs.pkg)
		}
	}
	return fs.res, nil
}

func (fs *fileScan) text(node *tree_sitter.Node) string {
	return parser.NodeText(node, fs.source)
}

func (fs *fileScan) scanImport(node *tree_sitter.Node, moduleID string) {
	var fqn string
	wildcard := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "scoped_identifier", "identifier":
			fqn = fs.text(child)
		case "asterisk":
			wildcard = true
		}
	}
	if fqn == "" {
		return
	}
	pkg := fqn
	if wildcard {
		fs.res.Ctx.Wildcards = append(fs.res.Ctx.Wildcards, fqn)
	} else {
		fs.res.Ctx.Imports[lastSegment(fqn)] = fqn
		pkg = parentSegments(fqn)
	}
	if pkg == "" {
		return
	}
	fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
		Kind:     adapter.RefImport,
		Rel:      ir.RelImports,
		SourceID: moduleID,
		Name:     pkg,
		Line:     int(node.StartPosition().Row) + 1,
	})
}

func (fs *fileScan) scanType(node *tree_sitter.Node, moduleID, parentQN string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := fs.text(nameNode)
	qn := joinDot(parentQN, name)

	var kind ir.TypeKind
	switch node.Kind() {
	case "interface_declaration":
		kind = ir.TypeInterface
	case "enum_declaration":
		kind = ir.TypeEnum
	default:
		kind = ir.TypeClass
	}

	typeID := ir.TypeID(fs.project, lang.Java, qn)
	fs.res.IR.AddType(&ir.Type{
		ID:            typeID,
		QualifiedName: qn,
		Name:          name,
		Kind:          kind,
		Language:      lang.Java,
		Visibility:    modifierVisibility(node, fs.source),
		ModuleID:      moduleID,
		FilePath:      fs.file.RelPath,
		StartLine:     int(node.StartPosition().Row) + 1,
		EndLine:       int(node.EndPosition().Row) + 1,
	})
	fs.res.IR.AddRelationship(ir.Relationship{SourceID: moduleID, TargetID: typeID, Type: ir.RelContains})

	fs.scanSupertypes(node, typeID, kind)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		switch member.Kind() {
		case "method_declaration":
			fs.scanMethod(member, moduleID, typeID, qn, name, false)
		case "constructor_declaration":
			fs.scanMethod(member, moduleID, typeID, qn, name, true)
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			fs.scanType(member, moduleID, qn)
		}
	}
}

// scanSupertypes emits extends and implements references. Classes
// extend one superclass and implement interfaces; interfaces extend
// other interfaces.
func (fs *fileScan) scanSupertypes(node *tree_sitter.Node, typeID string, kind ir.TypeKind) {
	if super := node.ChildByFieldName("superclass"); super != nil {
		for i := uint(0); i < super.NamedChildCount(); i++ {
			fs.addTypeRef(super.NamedChild(i), typeID, ir.RelExtends)
		}
	}
	if ifaces := node.ChildByFieldName("interfaces"); ifaces != nil {
		rel := ir.RelImplements
		if kind == ir.TypeInterface {
			rel = ir.RelExtends
		}
		parser.Walk(ifaces, func(n *tree_sitter.Node) bool {
			if n.Kind() == "type_identifier" || n.Kind() == "scoped_type_identifier" || n.Kind() == "generic_type" {
				fs.addTypeRef(n, typeID, rel)
				return false
			}
			return true
		})
	}
	// Interface "extends A, B" surfaces under its own clause node.
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() != "extends_interfaces" {
			continue
		}
		parser.Walk(child, func(n *tree_sitter.Node) bool {
			if n.Kind() == "type_identifier" || n.Kind() == "scoped_type_identifier" || n.Kind() == "generic_type" {
				fs.addTypeRef(n, typeID, ir.RelExtends)
				return false
			}
			return true
		})
	}
}

func (fs *fileScan) addTypeRef(node *tree_sitter.Node, sourceID string, rel ir.RelType) {
	name := bareTypeName(fs.text(node))
	if name == "" || name == "Object" {
		return
	}
	fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
		Kind:     adapter.RefType,
		Rel:      rel,
		SourceID: sourceID,
		Name:     name,
		Line:     int(node.StartPosition().Row) + 1,
	})
}

func (fs *fileScan) scanMethod(node *tree_sitter.Node, moduleID, typeID, typeQN, typeName string, isCtor bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := fs.text(nameNode)
	kind := ir.CallableMethod
	if isCtor {
		kind = ir.CallableConstructor
		name = typeName
	}
	sig := fs.buildSignature(node.ChildByFieldName("parameters"))
	qn := typeQN + "." + name

	callableID := ir.CallableID(fs.project, lang.Java, qn, sig)
	fs.res.IR.AddCallable(&ir.Callable{
		ID:            callableID,
		QualifiedName: qn,
		Name:          name,
		Kind:          kind,
		Signature:     sig,
		Language:      lang.Java,
		Visibility:    modifierVisibility(node, fs.source),
		ModuleID:      moduleID,
		TypeID:        typeID,
		FilePath:      fs.file.RelPath,
		StartLine:     int(node.StartPosition().Row) + 1,
		EndLine:       int(node.EndPosition().Row) + 1,
	})
	fs.res.IR.AddRelationship(ir.Relationship{SourceID: typeID, TargetID: callableID, Type: ir.RelContains})
	fs.scanCalls(node.ChildByFieldName("body"), callableID, typeQN)
}

func (fs *fileScan) scanCalls(body *tree_sitter.Node, callableID, enclosingTypeQN string) {
	if body == nil {
		return
	}
	parser.Walk(body, func(node *tree_sitter.Node) bool {
		switch node.Kind() {
		case "method_invocation":
			nameNode := node.ChildByFieldName("name")
			if nameNode == nil {
				return true
			}
			name := fs.text(nameNode)
			if obj := node.ChildByFieldName("object"); obj != nil {
				if obj.Kind() != "identifier" {
					return true
				}
				name = fs.text(obj) + "." + name
			}
			fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
				Kind:            adapter.RefCall,
				Rel:             ir.RelCalls,
				SourceID:        callableID,
				Name:            name,
				EnclosingTypeQN: enclosingTypeQN,
				Argc:            argCount(node.ChildByFieldName("arguments")),
				Line:            int(node.StartPosition().Row) + 1,
			})
		case "object_creation_expression":
			typeNode := node.ChildByFieldName("type")
			if typeNode == nil {
				return true
			}
			typeName := bareTypeName(fs.text(typeNode))
			if typeName == "" {
				return true
			}
			// Constructors are registered under Type.Type.
			fs.res.Refs = append(fs.res.Refs, adapter.RawRef{
				Kind:            adapter.RefCall,
				Rel:             ir.RelCalls,
				SourceID:        callableID,
				Name:            typeName + "." + typeName,
				EnclosingTypeQN: enclosingTypeQN,
				Argc:            argCount(node.ChildByFieldName("arguments")),
				Line:            int(node.StartPosition().Row) + 1,
			})
		}
		return true
	})
}

// buildSignature renders formal parameters as "(String, int)" with
// spread parameters as "Type...".
func (fs *fileScan) buildSignature(params *tree_sitter.Node) string {
	if params == nil {
		return "()"
	}
	var types []string
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		switch p.Kind() {
		case "formal_parameter":
			if t := p.ChildByFieldName("type"); t != nil {
				types = append(types, fs.text(t))
			}
		case "spread_parameter":
			for j := uint(0); j < p.NamedChildCount(); j++ {
				child := p.NamedChild(j)
				if strings.HasSuffix(child.Kind(), "type") || child.Kind() == "type_identifier" {
					types = append(types, fs.text(child)+"...")
					break
				}
			}
		}
	}
	return "(" + strings.Join(types, ", ") + ")"
}

func argCount(args *tree_sitter.Node) int {
	if args == nil {
		return 0
	}
	return int(args.NamedChildCount())
}

func packageName(root *tree_sitter.Node, source []byte) string {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		if node.Kind() != "package_declaration" {
			continue
		}
		for j := uint(0); j < node.NamedChildCount(); j++ {
			child := node.NamedChild(j)
			if child.Kind() == "scoped_identifier" || child.Kind() == "identifier" {
				return parser.NodeText(child, source)
			}
		}
	}
	return ""
}

func modifierVisibility(node *tree_sitter.Node, source []byte) ir.Visibility {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() != "modifiers" {
			continue
		}
		text := parser.NodeText(child, source)
		switch {
		case strings.Contains(text, "public"):
			return ir.VisibilityPublic
		case strings.Contains(text, "private"):
			return ir.VisibilityPrivate
		case strings.Contains(text, "protected"):
			return ir.VisibilityProtected
		}
	}
	return ir.VisibilityPackage
}

func bareTypeName(typeText string) string {
	s := strings.TrimSpace(typeText)
	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func joinDot(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func lastSegment(qn string) string {
	if i := strings.LastIndexByte(qn, '.'); i >= 0 {
		return qn[i+1:]
	}
	return qn
}

func parentSegments(qn string) string {
	if i := strings.LastIndexByte(qn, '.'); i >= 0 {
		return qn[:i]
	}
	return ""
}
