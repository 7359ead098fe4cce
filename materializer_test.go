package featcache

import (
	"slices"
	"testing"

	"golang.org/x/image/math/f64"
)

func TestMaterializersPriority(t *testing.T) {
	m := NewMaterializers("high", "low")
	low := &fakeMaterializer{arity: 1}
	high := &fakeMaterializer{arity: 2}
	other := &fakeMaterializer{arity: 3}

	m.Register("other", func() Materializer { return other })
	m.Register("low", func() Materializer { return low })
	m.Register("high", func() Materializer { return high })

	if got, want := m.Names(), []string{"high", "low", "other"}; !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	obj := newFakeObject("fake", f64.Vec3{})
	mat, ok := m.Resolve(obj)
	if !ok || mat != Materializer(high) {
		t.Errorf("Resolve() = %v, %v, want high", mat, ok)
	}
}

func TestMaterializersSkipsUnsupported(t *testing.T) {
	m := NewMaterializers()
	pins := &fakeMaterializer{kind: "pin", arity: 1}
	paths := &fakeMaterializer{kind: "path", arity: 2}
	m.Register("pin", func() Materializer { return pins })
	m.Register("path", func() Materializer { return paths })

	mat, ok := m.Resolve(newFakeObject("path", f64.Vec3{}))
	if !ok || mat != Materializer(paths) {
		t.Errorf("Resolve(path) = %v, %v", mat, ok)
	}
	if _, ok := m.Resolve(newFakeObject("circle", f64.Vec3{})); ok {
		t.Error("Resolve(circle) succeeded")
	}
	if _, ok := m.Resolve(nil); ok {
		t.Error("Resolve(nil) succeeded")
	}
}

func TestMaterializersCachePerKind(t *testing.T) {
	m := NewMaterializers()
	factoryCalls := 0
	mat := &fakeMaterializer{kind: "fake", arity: 1}
	m.Register("fake", func() Materializer { factoryCalls++; return mat })

	for range 5 {
		if _, ok := m.Resolve(newFakeObject("fake", f64.Vec3{})); !ok {
			t.Fatal("Resolve failed")
		}
	}
	if factoryCalls != 1 {
		t.Errorf("factory called %d times, want 1", factoryCalls)
	}

	// Negative results are cached too, until the next Register.
	if _, ok := m.Resolve(newFakeObject("late", f64.Vec3{})); ok {
		t.Fatal("Resolve(late) succeeded before registration")
	}
	late := &fakeMaterializer{kind: "late", arity: 1}
	m.Register("late", func() Materializer { return late })
	if got, ok := m.Resolve(newFakeObject("late", f64.Vec3{})); !ok || got != Materializer(late) {
		t.Errorf("Resolve(late) after Register = %v, %v", got, ok)
	}
}

func TestMaterializersRejectZeroArity(t *testing.T) {
	m := NewMaterializers()
	m.Register("broken", func() Materializer { return &fakeMaterializer{arity: 0} })
	if _, ok := m.Resolve(newFakeObject("fake", f64.Vec3{})); ok {
		t.Error("Resolve accepted a materializer with arity 0")
	}
}
