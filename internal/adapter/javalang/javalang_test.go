package javalang

import (
	"testing"

	"github.com/AperturePlus/synapse/internal/adapter"
	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/lang"
)

func scanFile(t *testing.T, relPath, src string) *adapter.FileResult {
	t.Helper()
	res, err := New().Scan("proj", adapter.SourceFile{
		Path:     "/repo/" + relPath,
		RelPath:  relPath,
		Language: lang.Java,
		Content:  []byte(src),
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return res
}

const animalSrc = `package com.example;

public class Animal {
    public void speak() {
    }
}
`

const dogSrc = `package com.example;

public class Dog extends Animal {
    private String name;

    public Dog(String name) {
        this.name = name;
    }

    public void bark() {
        speak();
        missing();
    }
}
`

func TestExtendsAndCalls(t *testing.T) {
	results := []*adapter.FileResult{
		scanFile(t, "src/Animal.java", animalSrc),
		scanFile(t, "src/Dog.java", dogSrc),
	}
	table := adapter.BuildTable(results)
	merged := ir.New("proj")
	for _, res := range results {
		if err := ir.Merge(merged, res.IR); err != nil {
			t.Fatalf("Merge: %v", err)
		}
	}
	stats := adapter.ResolveRefs("proj", results, table, merged)

	if got := len(merged.Types); got != 2 {
		t.Fatalf("expected 2 types, got %d", got)
	}
	if got := len(merged.Callables); got != 4 {
		t.Fatalf("expected 4 callables including the unresolved marker, got %d", got)
	}

	animalID := ir.TypeID("proj", lang.Java, "com.example.Animal")
	dogID := ir.TypeID("proj", lang.Java, "com.example.Dog")
	extends := ir.Relationship{SourceID: dogID, TargetID: animalID, Type: ir.RelExtends}
	if _, ok := merged.Relationships[extends.Key()]; !ok {
		t.Error("expected EXTENDS edge Dog -> Animal")
	}

	barkID := ir.CallableID("proj", lang.Java, "com.example.Dog.bark", "()")
	speakID := ir.CallableID("proj", lang.Java, "com.example.Animal.speak", "()")
	calls := ir.Relationship{SourceID: barkID, TargetID: speakID, Type: ir.RelCalls}
	if _, ok := merged.Relationships[calls.Key()]; !ok {
		t.Error("expected CALLS edge bark -> speak")
	}

	if stats.Unresolved != 1 {
		t.Errorf("expected 1 unresolved call, got %d", stats.Unresolved)
	}
	if len(merged.Unresolved) != 1 || merged.Unresolved[0].Name != "missing" {
		t.Errorf("expected unresolved ref to missing, got %+v", merged.Unresolved)
	}

	marker := ir.UnresolvedMarker("proj", lang.Java)
	if _, ok := merged.Callables[marker.ID]; !ok {
		t.Fatal("expected unresolved marker callable in IR")
	}
	toMarker := ir.Relationship{SourceID: barkID, TargetID: marker.ID, Type: ir.RelCalls}
	if _, ok := merged.Relationships[toMarker.Key()]; !ok {
		t.Error("expected CALLS edge bark -> unresolved marker")
	}
}

func TestConstructorSignature(t *testing.T) {
	res := scanFile(t, "src/Dog.java", dogSrc)

	ctorID := ir.CallableID("proj", lang.Java, "com.example.Dog.Dog", "(String)")
	ctor, ok := res.IR.Callables[ctorID]
	if !ok {
		t.Fatal("constructor not found")
	}
	if ctor.Kind != ir.CallableConstructor {
		t.Errorf("expected CONSTRUCTOR, got %s", ctor.Kind)
	}
	if ctor.Name != "Dog" {
		t.Errorf("expected constructor named Dog, got %s", ctor.Name)
	}
}

func TestOverloadsGetDistinctIDs(t *testing.T) {
	res := scanFile(t, "src/Fmt.java", `package com.example;

public class Fmt {
    public String render(String s) { return s; }
    public String render(String s, int width) { return s; }
    public String render(Object... parts) { return ""; }
}
`)
	if got := len(res.IR.Callables); got != 3 {
		t.Fatalf("expected 3 overloads, got %d", got)
	}
	sigs := map[string]bool{}
	for _, c := range res.IR.Callables {
		sigs[c.Signature] = true
	}
	for _, want := range []string{"(String)", "(String, int)", "(Object...)"} {
		if !sigs[want] {
			t.Errorf("missing signature %s in %v", want, sigs)
		}
	}
}

func TestInterfaceImplements(t *testing.T) {
	results := []*adapter.FileResult{
		scanFile(t, "src/Pet.java", `package com.example;

public interface Pet {
    void play();
}
`),
		scanFile(t, "src/Cat.java", `package com.example;

public class Cat implements Pet {
    public void play() {
    }
}
`),
	}
	table := adapter.BuildTable(results)
	merged := ir.New("proj")
	for _, res := range results {
		if err := ir.Merge(merged, res.IR); err != nil {
			t.Fatalf("Merge: %v", err)
		}
	}
	adapter.ResolveRefs("proj", results, table, merged)

	catID := ir.TypeID("proj", lang.Java, "com.example.Cat")
	petID := ir.TypeID("proj", lang.Java, "com.example.Pet")
	impl := ir.Relationship{SourceID: catID, TargetID: petID, Type: ir.RelImplements}
	if _, ok := merged.Relationships[impl.Key()]; !ok {
		t.Error("expected IMPLEMENTS edge Cat -> Pet")
	}
}

func TestUnresolvedSupertype(t *testing.T) {
	results := []*adapter.FileResult{
		scanFile(t, "src/Widget.java", `package com.example;

public class Widget extends JPanel {
}
`),
	}
	table := adapter.BuildTable(results)
	merged := ir.New("proj")
	for _, res := range results {
		if err := ir.Merge(merged, res.IR); err != nil {
			t.Fatalf("Merge: %v", err)
		}
	}
	stats := adapter.ResolveRefs("proj", results, table, merged)

	if stats.Unresolved != 1 {
		t.Fatalf("expected 1 unresolved reference, got %d", stats.Unresolved)
	}
	marker := ir.UnresolvedMarkerType("proj", lang.Java)
	if _, ok := merged.Types[marker.ID]; !ok {
		t.Fatal("expected unresolved marker type in IR")
	}
	widgetID := ir.TypeID("proj", lang.Java, "com.example.Widget")
	extends := ir.Relationship{SourceID: widgetID, TargetID: marker.ID, Type: ir.RelExtends}
	if _, ok := merged.Relationships[extends.Key()]; !ok {
		t.Error("expected EXTENDS edge Widget -> unresolved marker")
	}
}

func TestNestedTypes(t *testing.T) {
	res := scanFile(t, "src/Outer.java", `package com.example;

public class Outer {
    static class Inner {
        void run() {
        }
    }
}
`)
	innerID := ir.TypeID("proj", lang.Java, "com.example.Outer.Inner")
	inner, ok := res.IR.Types[innerID]
	if !ok {
		t.Fatal("nested type not found")
	}
	if inner.Visibility != ir.VisibilityPackage {
		t.Errorf("expected package visibility, got %s", inner.Visibility)
	}
	runID := ir.CallableID("proj", lang.Java, "com.example.Outer.Inner.run", "()")
	if _, ok := res.IR.Callables[runID]; !ok {
		t.Error("nested type method not found")
	}
}
