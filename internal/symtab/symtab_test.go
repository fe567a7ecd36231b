package symtab

import (
	"testing"

	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/lang"
)

func decl(qn, name, sig string) Decl {
	return Decl{
		ID:            qn + sig,
		Kind:          ir.KindCallable,
		QualifiedName: qn,
		Name:          name,
		Signature:     sig,
		Language:      lang.Java,
		ModuleQN:      "com.example",
	}
}

func typeDecl(qn, name string) Decl {
	return Decl{
		ID:            qn,
		Kind:          ir.KindType,
		QualifiedName: qn,
		Name:          name,
		Language:      lang.Java,
		ModuleQN:      "com.example",
	}
}

func TestLookupSignatureExact(t *testing.T) {
	tab := NewTable()
	tab.Add(decl("com.example.Svc.run", "run", "(String)"))
	tab.Add(decl("com.example.Svc.run", "run", "(String, int)"))

	d, status := tab.LookupSignature(lang.Java, "com.example.Svc.run", "(String, int)")
	if status != MatchExact {
		t.Fatalf("expected exact match, got %v", status)
	}
	if d.Signature != "(String, int)" {
		t.Errorf("expected (String, int), got %s", d.Signature)
	}
}

func TestLookupSignatureArity(t *testing.T) {
	tab := NewTable()
	tab.Add(decl("com.example.Svc.run", "run", "(String)"))
	tab.Add(decl("com.example.Svc.run", "run", "(Path, Charset, int)"))

	// No exact match for "(File, UTF8, 3)"; arity 3 should win.
	d, status := tab.LookupSignature(lang.Java, "com.example.Svc.run", "(File, UTF8, 3)")
	if status != MatchArity {
		t.Fatalf("expected arity match, got %v", status)
	}
	if d.Signature != "(Path, Charset, int)" {
		t.Errorf("expected 3-arg overload, got %s", d.Signature)
	}
}

func TestLookupSignatureTiebreakInsertionOrderIndependent(t *testing.T) {
	// Two overloads with the same arity, neither exact: the
	// lexicographically smaller signature must always win.
	forward := NewTable()
	forward.Add(decl("com.example.Svc.run", "run", "(String)"))
	forward.Add(decl("com.example.Svc.run", "run", "(Object)"))

	reverse := NewTable()
	reverse.Add(decl("com.example.Svc.run", "run", "(Object)"))
	reverse.Add(decl("com.example.Svc.run", "run", "(String)"))

	for _, tab := range []*Table{forward, reverse} {
		d, status := tab.LookupSignature(lang.Java, "com.example.Svc.run", "(Thing)")
		if status != MatchArity {
			t.Fatalf("expected arity-level match, got %v", status)
		}
		if d.Signature != "(Object)" {
			t.Errorf("expected (Object) to win the tiebreak, got %s", d.Signature)
		}
	}
}

func TestLookupSignatureNone(t *testing.T) {
	tab := NewTable()
	if _, status := tab.LookupSignature(lang.Java, "com.example.Missing.run", "()"); status != MatchNone {
		t.Errorf("expected no match, got %v", status)
	}
}

func TestAddConflict(t *testing.T) {
	tab := NewTable()
	first := decl("com.example.Svc.run", "run", "(String)")
	first.FilePath = "src/Svc.java"
	second := first
	second.FilePath = "src/legacy/Svc.java"
	tab.Add(first)
	tab.Add(second)

	conflicts := tab.Conflicts()
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Kept.FilePath != first.FilePath {
		t.Errorf("expected first declaration kept, got %s", conflicts[0].Kept.FilePath)
	}
	if got := tab.Lookup(lang.Java, "com.example.Svc.run"); len(got) != 1 {
		t.Errorf("excluded declaration leaked into lookup: %d results", len(got))
	}
}

func TestAddDuplicateIsNoOp(t *testing.T) {
	tab := NewTable()
	d := decl("com.example.Svc.run", "run", "(String)")
	tab.Add(d)
	tab.Add(d)

	if got := tab.Conflicts(); len(got) != 0 {
		t.Errorf("identical duplicate reported as conflict: %v", got)
	}
	if got := tab.Lookup(lang.Java, "com.example.Svc.run"); len(got) != 1 {
		t.Errorf("duplicate registered twice: %d results", len(got))
	}
}

func TestAddModuleAcrossFiles(t *testing.T) {
	tab := NewTable()
	mod := Decl{
		ID:            "mod-id",
		Kind:          ir.KindModule,
		QualifiedName: "com.example",
		Name:          "example",
		Language:      lang.Java,
		ModuleQN:      "com.example",
		FilePath:      "src/A.java",
	}
	tab.Add(mod)
	mod.FilePath = "src/B.java"
	tab.Add(mod)

	if got := tab.Conflicts(); len(got) != 0 {
		t.Errorf("module re-declaration reported as conflict: %v", got)
	}
}

func TestModuleAndTypeShareName(t *testing.T) {
	// A namespace Foo next to a global class Foo: both must be
	// indexed and neither may conflict, in either insertion order.
	module := Decl{
		ID:            "mod-foo",
		Kind:          ir.KindModule,
		QualifiedName: "Foo",
		Name:          "Foo",
		Language:      lang.PHP,
		ModuleQN:      "Foo",
	}
	class := Decl{
		ID:            "type-foo",
		Kind:          ir.KindType,
		QualifiedName: "Foo",
		Name:          "Foo",
		Language:      lang.PHP,
		ModuleQN:      `\`,
		FilePath:      "src/Foo.php",
	}

	for _, order := range [][]Decl{{module, class}, {class, module}} {
		tab := NewTable()
		for _, d := range order {
			tab.Add(d)
		}
		if got := tab.Conflicts(); len(got) != 0 {
			t.Fatalf("cross-kind name sharing reported as conflict: %v", got)
		}
		if got := tab.Lookup(lang.PHP, "Foo"); len(got) != 2 {
			t.Fatalf("expected both declarations indexed, got %d", len(got))
		}
		fc := FileContext{Language: lang.PHP, Imports: map[string]string{}}
		d, ok := tab.ResolveType(fc, "Foo")
		if !ok || d.ID != "type-foo" {
			t.Errorf("expected class Foo to resolve, got %+v ok=%v", d, ok)
		}
	}
}

func TestLookupSignatureSkipsTypes(t *testing.T) {
	// A class and a function sharing a qualified name: signature
	// lookups must only ever return the callable.
	tab := NewTable()
	tab.Add(typeDecl("com.example.Foo", "Foo"))
	fn := decl("com.example.Foo", "Foo", "(String)")
	tab.Add(fn)

	d, status := tab.LookupSignature(lang.Java, "com.example.Foo", "()")
	if status == MatchNone {
		t.Fatal("expected the callable to match")
	}
	if d.Kind != ir.KindCallable || d.ID != fn.ID {
		t.Errorf("signature lookup returned %s %s", d.Kind, d.ID)
	}
}

func TestResolveTypeOrder(t *testing.T) {
	tab := NewTable()
	tab.Add(typeDecl("com.example.List", "List"))
	tab.Add(typeDecl("java.util.List", "List"))

	fc := FileContext{
		Language: lang.Java,
		ModuleQN: "com.example",
		Imports:  map[string]string{},
	}

	// Same module wins over an equally named type elsewhere.
	d, ok := tab.ResolveType(fc, "List")
	if !ok {
		t.Fatal("expected resolution")
	}
	if d.QualifiedName != "com.example.List" {
		t.Errorf("expected same-module type, got %s", d.QualifiedName)
	}

	// An explicit import beats the same-module match.
	fc.Imports["List"] = "java.util.List"
	d, ok = tab.ResolveType(fc, "List")
	if !ok {
		t.Fatal("expected resolution")
	}
	if d.QualifiedName != "java.util.List" {
		t.Errorf("expected imported type, got %s", d.QualifiedName)
	}
}

func TestResolveTypeWildcard(t *testing.T) {
	tab := NewTable()
	tab.Add(typeDecl("java.util.Map", "Map"))

	fc := FileContext{
		Language:  lang.Java,
		ModuleQN:  "com.example",
		Imports:   map[string]string{},
		Wildcards: []string{"java.util"},
	}
	d, ok := tab.ResolveType(fc, "Map")
	if !ok {
		t.Fatal("expected wildcard resolution")
	}
	if d.QualifiedName != "java.util.Map" {
		t.Errorf("got %s", d.QualifiedName)
	}
}

func TestResolveTypeAmbiguous(t *testing.T) {
	tab := NewTable()
	tab.Add(typeDecl("com.a.Thing", "Thing"))
	tab.Add(typeDecl("com.b.Thing", "Thing"))

	fc := FileContext{Language: lang.Java, ModuleQN: "com.example", Imports: map[string]string{}}
	if _, ok := tab.ResolveType(fc, "Thing"); ok {
		t.Error("ambiguous simple name should not resolve")
	}
}

func TestResolveTypePHPSeparator(t *testing.T) {
	tab := NewTable()
	tab.Add(Decl{
		ID:            "app-model-user",
		Kind:          ir.KindType,
		QualifiedName: `App\Model\User`,
		Name:          "User",
		Language:      lang.PHP,
		ModuleQN:      `App\Model`,
	})

	fc := FileContext{Language: lang.PHP, ModuleQN: `App\Model`, Imports: map[string]string{}}
	d, ok := tab.ResolveType(fc, "User")
	if !ok {
		t.Fatal("expected resolution in php namespace")
	}
	if d.QualifiedName != `App\Model\User` {
		t.Errorf("got %s", d.QualifiedName)
	}
}
