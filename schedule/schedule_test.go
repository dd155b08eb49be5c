package schedule

import "testing"

func TestIteratorWalksInOrder(t *testing.T) {
	s := New([]Element{
		{Time: 0, HasObs: true, HasOutput: true, IndexOutput: 0},
		{Time: 1, HasOutput: true, IndexOutput: 1},
		{Time: 2, HasObs: true, HasOutput: true, IndexObs: 1, IndexOutput: 2},
	})

	it := s.Begin()
	last := s.Last()

	if it.Elem().Time != 0 {
		t.Fatalf("first element time = %v, want 0", it.Elem().Time)
	}
	if it.AtEnd(last) {
		t.Fatalf("iterator should not be at end at position 0 of 3")
	}

	it.Next()
	if it.Elem().Time != 1 {
		t.Fatalf("second element time = %v, want 1", it.Elem().Time)
	}

	it.Next()
	if it.Elem().Time != 2 || !it.Elem().HasObs {
		t.Fatalf("third element = %+v, want time=2 hasObs=true", it.Elem())
	}
	if it.Pos()+1 != last {
		t.Fatalf("Pos()+1 should equal Last() on the final element")
	}
}

func TestLenAndAt(t *testing.T) {
	s := New([]Element{{Time: 0}, {Time: 1.5}})
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if s.At(1).Time != 1.5 {
		t.Fatalf("At(1).Time = %v, want 1.5", s.At(1).Time)
	}
}
