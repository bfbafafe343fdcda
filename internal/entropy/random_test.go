package entropy

import "testing"

func TestSourceDeterminism(t *testing.T) {
	a := NewSource(42)
	b := NewSource(42)

	for i := 0; i < 1000; i++ {
		av, bv := a.Float64(), b.Float64()
		if av != bv {
			t.Fatalf("draw %d: sources diverged: %v != %v", i, av, bv)
		}
	}
}

func TestSourcesDifferBySeed(t *testing.T) {
	a := NewSource(1)
	b := NewSource(2)

	same := 0
	for i := 0; i < 100; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 100 {
		t.Fatal("different seeds produced identical streams")
	}
}

func TestUniformRange(t *testing.T) {
	s := NewSource(7)
	for i := 0; i < 1000; i++ {
		v := s.Uniform(0.05, 0.2)
		if v < 0.05 || v >= 0.2 {
			t.Fatalf("Uniform(0.05, 0.2) = %v, out of range", v)
		}
	}
}

func TestIntBetweenInclusive(t *testing.T) {
	s := NewSource(3)
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		v := s.IntBetween(1, 2)
		if v < 1 || v > 2 {
			t.Fatalf("IntBetween(1, 2) = %d", v)
		}
		seen[v] = true
	}
	if !seen[1] || !seen[2] {
		t.Errorf("IntBetween(1, 2) never produced both endpoints: %v", seen)
	}
}

func TestChanceExtremes(t *testing.T) {
	s := NewSource(11)
	for i := 0; i < 100; i++ {
		if s.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !s.Chance(1.0) {
			t.Fatal("Chance(1.0) returned false")
		}
	}
}
