package phplang

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
		Language: lang.PHP,
		Content:  []byte(src),
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return res
}

const animalSrc = `<?php

namespace App\Model;

class Animal
{
    public function speak(): void
    {
    }
}
`

const dogSrc = `<?php

namespace App\Model;

class Dog extends Animal
{
    private string $name;

    public function __construct(string $name)
    {
        $this->name = $name;
    }

    public function bark(): void
    {
        $this->speak();
    }
}
`

func TestClassHierarchy(t *testing.T) {
	results := []*adapter.FileResult{
		scanFile(t, "src/Model/Animal.php", animalSrc),
		scanFile(t, "src/Model/Dog.php", dogSrc),
	}
	table := adapter.BuildTable(results)
	merged := ir.New("proj")
	for _, res := range results {
		if err := ir.Merge(merged, res.IR); err != nil {
			t.Fatalf("Merge: %v", err)
		}
	}
	adapter.ResolveRefs("proj", results, table, merged)

	if got := len(merged.Modules); got != 1 {
		t.Fatalf("expected 1 module, got %d", got)
	}
	if got := len(merged.Types); got != 2 {
		t.Fatalf("expected 2 types, got %d", got)
	}

	animalID := ir.TypeID("proj", lang.PHP, `App\Model\Animal`)
	dogID := ir.TypeID("proj", lang.PHP, `App\Model\Dog`)
	extends := ir.Relationship{SourceID: dogID, TargetID: animalID, Type: ir.RelExtends}
	if _, ok := merged.Relationships[extends.Key()]; !ok {
		t.Error("expected EXTENDS edge Dog -> Animal")
	}

	barkID := ir.CallableID("proj", lang.PHP, `App\Model\Dog\bark`, "()")
	speakID := ir.CallableID("proj", lang.PHP, `App\Model\Animal\speak`, "()")
	calls := ir.Relationship{SourceID: barkID, TargetID: speakID, Type: ir.RelCalls}
	if _, ok := merged.Relationships[calls.Key()]; !ok {
		t.Error("expected CALLS edge bark -> speak")
	}
}

func TestParentCallResolvesToBaseClass(t *testing.T) {
	results := []*adapter.FileResult{
		scanFile(t, "src/Model/Animal.php", animalSrc),
		scanFile(t, "src/Model/LoudDog.php", `<?php

namespace App\Model;

class LoudDog extends Animal
{
    public function speak(): void
    {
        parent::speak();
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

	overrideID := ir.CallableID("proj", lang.PHP, `App\Model\LoudDog\speak`, "()")
	baseID := ir.CallableID("proj", lang.PHP, `App\Model\Animal\speak`, "()")
	toBase := ir.Relationship{SourceID: overrideID, TargetID: baseID, Type: ir.RelCalls}
	if _, ok := merged.Relationships[toBase.Key()]; !ok {
		t.Error("expected parent::speak to resolve to the base class method")
	}
	toSelf := ir.Relationship{SourceID: overrideID, TargetID: overrideID, Type: ir.RelCalls}
	if _, ok := merged.Relationships[toSelf.Key()]; ok {
		t.Error("parent::speak resolved to the override itself")
	}
}

func TestConstructorKind(t *testing.T) {
	res := scanFile(t, "src/Model/Dog.php", dogSrc)

	ctorID := ir.CallableID("proj", lang.PHP, `App\Model\Dog\__construct`, "(string)")
	ctor, ok := res.IR.Callables[ctorID]
	if !ok {
		t.Fatal("constructor not found")
	}
	if ctor.Kind != ir.CallableConstructor {
		t.Errorf("expected CONSTRUCTOR, got %s", ctor.Kind)
	}
}

func TestTraitUse(t *testing.T) {
	results := []*adapter.FileResult{
		scanFile(t, "src/Loggable.php", `<?php

namespace App;

trait Loggable
{
    public function log(string $msg): void
    {
    }
}
`),
		scanFile(t, "src/Service.php", `<?php

namespace App;

class Service
{
    use Loggable;
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

	trait, ok := merged.Types[ir.TypeID("proj", lang.PHP, `App\Loggable`)]
	if !ok {
		t.Fatal("trait not found")
	}
	if trait.Kind != ir.TypeTrait {
		t.Errorf("expected TRAIT, got %s", trait.Kind)
	}

	svcID := ir.TypeID("proj", lang.PHP, `App\Service`)
	embeds := ir.Relationship{SourceID: svcID, TargetID: trait.ID, Type: ir.RelEmbeds}
	if _, ok := merged.Relationships[embeds.Key()]; !ok {
		t.Error("expected EMBEDS edge Service -> Loggable")
	}
}

func TestUseImportResolution(t *testing.T) {
	results := []*adapter.FileResult{
		scanFile(t, "src/Model/User.php", `<?php

namespace App\Model;

class User
{
}
`),
		scanFile(t, "src/Http/Controller.php", `<?php

namespace App\Http;

use App\Model\User;

class Controller extends User
{
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

	ctrlID := ir.TypeID("proj", lang.PHP, `App\Http\Controller`)
	userID := ir.TypeID("proj", lang.PHP, `App\Model\User`)
	extends := ir.Relationship{SourceID: ctrlID, TargetID: userID, Type: ir.RelExtends}
	if _, ok := merged.Relationships[extends.Key()]; !ok {
		t.Error("expected EXTENDS edge through use import")
	}
}

func TestGlobalNamespace(t *testing.T) {
	res := scanFile(t, "src/helpers.php", `<?php

function render(string $tpl): string
{
    return $tpl;
}
`)
	mod, ok := res.IR.Modules[ir.ModuleID("proj", lang.PHP, `\`)]
	if !ok {
		t.Fatal("global namespace module not found")
	}
	if mod.QualifiedName != `\` {
		t.Errorf("got %q", mod.QualifiedName)
	}
	if _, ok := res.IR.Callables[ir.CallableID("proj", lang.PHP, "render", "(string)")]; !ok {
		t.Error("global function not found")
	}
}
