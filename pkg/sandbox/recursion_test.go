package sandbox

import (
	"testing"

	"github.com/ghostwriter-web/go-ghostwriter/pkg/value"
)

func TestIsRecursiveSelfList(t *testing.T) {
	list := value.NewList()
	list.Append(value.FromList(list))
	if !isRecursive(value.FromList(list)) {
		t.Fatalf("list containing itself not reported recursive")
	}
}

func TestIsRecursiveMutualMaps(t *testing.T) {
	a := value.NewMap()
	b := value.NewMap()
	a.Set("other", value.FromMap(b))
	b.Set("other", value.FromMap(a))
	if !isRecursive(value.FromMap(a)) {
		t.Fatalf("mutually referencing maps not reported recursive")
	}
}

func TestIsRecursiveDistinctTwins(t *testing.T) {
	twin := func() value.Value {
		inner := value.NewList()
		inner.Append(value.FromInt(1))
		outer := value.NewList()
		outer.Append(value.FromList(inner))
		return value.FromList(outer)
	}
	holder := value.NewList()
	holder.Append(twin())
	holder.Append(twin())
	if isRecursive(value.FromList(holder)) {
		t.Fatalf("structurally identical but distinct lists reported recursive")
	}
}

func TestIsRecursiveSharedAcyclic(t *testing.T) {
	shared := value.NewList()
	shared.Append(value.FromString("x"))
	holder := value.NewList()
	holder.Append(value.FromList(shared))
	holder.Append(value.FromList(shared))
	if isRecursive(value.FromList(holder)) {
		t.Fatalf("shared acyclic structure reported recursive")
	}
}

func TestIsRecursiveDepthBound(t *testing.T) {
	deep := value.NewList()
	root := value.FromList(deep)
	for i := 0; i < maxTraversalDepth+1; i++ {
		next := value.NewList()
		deep.Append(value.FromList(next))
		deep = next
	}
	if !isRecursive(root) {
		t.Fatalf("chain deeper than the bound not reported recursive")
	}

	shallow := value.NewList()
	shallowRoot := value.FromList(shallow)
	for i := 0; i < maxTraversalDepth-1; i++ {
		next := value.NewList()
		shallow.Append(value.FromList(next))
		shallow = next
	}
	if isRecursive(shallowRoot) {
		t.Fatalf("chain inside the bound reported recursive")
	}
}

func TestIsRecursiveScalars(t *testing.T) {
	for _, v := range []value.Value{value.None(), value.FromString("x"), value.FromInt(1), value.FromBool(true)} {
		if isRecursive(v) {
			t.Fatalf("scalar %v reported recursive", v)
		}
	}
}
