package rangeset

import "testing"

// assertInvariants fails the test if the set violates the sorted,
// non-overlapping, non-adjacent, non-empty invariant.
func assertInvariants(t *testing.T, s Set) {
	t.Helper()
	for i, r := range s.ranges {
		if r.IsEmpty() {
			t.Errorf("range %d (%v) is empty", i, r)
		}
		if i > 0 && s.ranges[i-1].End >= r.Start {
			t.Errorf("ranges %d and %d overlap or touch: %v, %v", i-1, i, s.ranges[i-1], r)
		}
	}
}

// elements expands the set into a membership map, the naive reference
// model for the set operations.
func elements(s Set) map[int]bool {
	m := make(map[int]bool)
	for _, r := range s.ranges {
		for i := r.Start; i < r.End; i++ {
			m[i] = true
		}
	}
	return m
}

func TestNewNormalizes(t *testing.T) {
	tests := []struct {
		name string
		in   []Range
		want []Range
	}{
		{
			name: "empty input",
			in:   nil,
			want: nil,
		},
		{
			name: "drops empty ranges",
			in:   []Range{{5, 5}, {3, 1}},
			want: nil,
		},
		{
			name: "sorts",
			in:   []Range{{4, 6}, {0, 2}},
			want: []Range{{0, 2}, {4, 6}},
		},
		{
			name: "merges overlap",
			in:   []Range{{0, 3}, {2, 5}},
			want: []Range{{0, 5}},
		},
		{
			name: "merges adjacent",
			in:   []Range{{0, 2}, {2, 4}},
			want: []Range{{0, 4}},
		},
		{
			name: "merges contained",
			in:   []Range{{0, 10}, {2, 4}},
			want: []Range{{0, 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.in...)
			assertInvariants(t, got)
			if !got.Equal(New(tt.want...)) {
				t.Errorf("New(%v) = %v, want %v", tt.in, got.ranges, tt.want)
			}
		})
	}
}

func TestRangeIntersect(t *testing.T) {
	tests := []struct {
		a, b   Range
		want   Range
		wantOK bool
	}{
		{Range{0, 0}, Range{0, 0}, Range{}, false},
		{Range{0, 1}, Range{0, 0}, Range{}, false},
		{Range{0, 1}, Range{1, 2}, Range{}, false},
		{Range{0, 1}, Range{0, 1}, Range{0, 1}, true},
		{Range{0, 2}, Range{0, 1}, Range{0, 1}, true},
		{Range{0, 2}, Range{1, 2}, Range{1, 2}, true},
		{Range{1, 2}, Range{0, 2}, Range{1, 2}, true},
		{Range{0, 5}, Range{2, 9}, Range{2, 5}, true},
	}

	for _, tt := range tests {
		got, ok := tt.a.Intersect(tt.b)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("%v.Intersect(%v) = %v, %v, want %v, %v", tt.a, tt.b, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestUnion(t *testing.T) {
	tests := []struct {
		name string
		a, b Set
		want Set
	}{
		{
			name: "disjoint",
			a:    New(Range{0, 2}),
			b:    New(Range{4, 6}),
			want: New(Range{0, 2}, Range{4, 6}),
		},
		{
			name: "overlapping",
			a:    New(Range{0, 4}),
			b:    New(Range{2, 6}),
			want: New(Range{0, 6}),
		},
		{
			name: "adjacent coalesce",
			a:    New(Range{0, 2}),
			b:    New(Range{2, 4}),
			want: New(Range{0, 4}),
		},
		{
			name: "interleaved",
			a:    New(Range{0, 1}, Range{4, 5}, Range{8, 9}),
			b:    New(Range{2, 3}, Range{6, 7}),
			want: New(Range{0, 1}, Range{2, 3}, Range{4, 5}, Range{6, 7}, Range{8, 9}),
		},
		{
			name: "empty right",
			a:    New(Range{0, 2}),
			b:    New(),
			want: New(Range{0, 2}),
		},
		{
			name: "bridging",
			a:    New(Range{0, 2}, Range{4, 6}),
			b:    New(Range{1, 5}),
			want: New(Range{0, 6}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Union(tt.b)
			assertInvariants(t, got)
			if !got.Equal(tt.want) {
				t.Errorf("Union = %v, want %v", got.ranges, tt.want.ranges)
			}
		})
	}
}

func TestIntersect(t *testing.T) {
	set := New(Range{0, 1}, Range{2, 3}, Range{5, 6})

	tests := []struct {
		name  string
		other Set
		want  Set
	}{
		{"empty", New(), New()},
		{"in gap", New(Range{1, 2}), New()},
		{"between", New(Range{3, 5}), New()},
		{"rightward", New(Range{7, 8}), New()},
		{"exact first", New(Range{0, 1}), New(Range{0, 1})},
		{"covers two", New(Range{0, 3}), New(Range{0, 1}, Range{2, 3})},
		{"covers all", New(Range{0, 6}), set},
		{"skips first", New(Range{1, 6}), New(Range{2, 3}, Range{5, 6})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := set.Intersect(tt.other)
			assertInvariants(t, got)
			if !got.Equal(tt.want) {
				t.Errorf("Intersect = %v, want %v", got.ranges, tt.want.ranges)
			}
		})
	}
}

// TestIntersectAgainstModel exhaustively checks two-range sets against a
// naive membership-set model.
func TestIntersectAgainstModel(t *testing.T) {
	const n = 6

	var sets []Set
	for xs := 0; xs < n; xs++ {
		for xe := xs; xe <= n; xe++ {
			for ys := 0; ys < n; ys++ {
				for ye := ys; ye <= n; ye++ {
					sets = append(sets, New(Range{xs, xe}, Range{ys, ye}))
				}
			}
		}
	}

	for _, a := range sets {
		for _, b := range sets {
			got := a.Intersect(b)
			assertInvariants(t, got)

			am, bm := elements(a), elements(b)
			want := make(map[int]bool)
			for i := range am {
				if bm[i] {
					want[i] = true
				}
			}

			gm := elements(got)
			if len(gm) != len(want) {
				t.Fatalf("%v.Intersect(%v) = %v, want elements %v", a.ranges, b.ranges, got.ranges, want)
			}
			for i := range want {
				if !gm[i] {
					t.Fatalf("%v.Intersect(%v) = %v, missing element %d", a.ranges, b.ranges, got.ranges, i)
				}
			}
		}
	}
}

func TestIntersectRangeSymmetry(t *testing.T) {
	set := New(Range{0, 3}, Range{5, 9}, Range{12, 13})
	ranges := []Range{{0, 0}, {0, 1}, {2, 6}, {4, 5}, {8, 14}, {13, 20}}

	for _, r := range ranges {
		viaRange := set.IntersectRange(r)
		viaSet := set.Intersect(FromRange(r))
		assertInvariants(t, viaRange)
		if !viaRange.Equal(viaSet) {
			t.Errorf("IntersectRange(%v) = %v, Intersect(FromRange) = %v", r, viaRange.ranges, viaSet.ranges)
		}
	}
}

func TestDifference(t *testing.T) {
	tests := []struct {
		name string
		a, b Set
		want Set
	}{
		{
			name: "disjoint",
			a:    New(Range{0, 2}),
			b:    New(Range{4, 6}),
			want: New(Range{0, 2}),
		},
		{
			name: "full removal",
			a:    New(Range{2, 4}),
			b:    New(Range{0, 6}),
			want: New(),
		},
		{
			name: "split in two",
			a:    New(Range{0, 10}),
			b:    New(Range{3, 5}),
			want: New(Range{0, 3}, Range{5, 10}),
		},
		{
			name: "left trim",
			a:    New(Range{0, 10}),
			b:    New(Range{0, 4}),
			want: New(Range{4, 10}),
		},
		{
			name: "right trim",
			a:    New(Range{0, 10}),
			b:    New(Range{6, 12}),
			want: New(Range{0, 6}),
		},
		{
			name: "multiple holes",
			a:    New(Range{0, 10}),
			b:    New(Range{1, 2}, Range{4, 5}, Range{7, 8}),
			want: New(Range{0, 1}, Range{2, 4}, Range{5, 7}, Range{8, 10}),
		},
		{
			name: "subtrahend spans two ranges",
			a:    New(Range{0, 4}, Range{6, 10}),
			b:    New(Range{2, 8}),
			want: New(Range{0, 2}, Range{8, 10}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Difference(tt.b)
			assertInvariants(t, got)
			if !got.Equal(tt.want) {
				t.Errorf("Difference = %v, want %v", got.ranges, tt.want.ranges)
			}
		})
	}
}

func TestOffsetAdditive(t *testing.T) {
	a := New(Range{0, 3}, Range{5, 9})
	b := New(Range{0, 3}, Range{5, 9})

	a.Offset(4)
	a.Offset(3)
	b.Offset(7)

	if !a.Equal(b) {
		t.Errorf("Offset(4).Offset(3) = %v, Offset(7) = %v", a.ranges, b.ranges)
	}
	if !a.Equal(New(Range{7, 10}, Range{12, 16})) {
		t.Errorf("Offset result = %v", a.ranges)
	}
}

func TestOffsetLeavesCopiesUnmoved(t *testing.T) {
	a := New(Range{0, 3}, Range{5, 9})
	b := a

	a.Offset(10)

	if !a.Equal(New(Range{10, 13}, Range{15, 19})) {
		t.Errorf("shifted copy = %v", a.ranges)
	}
	if !b.Equal(New(Range{0, 3}, Range{5, 9})) {
		t.Errorf("unshifted copy moved: %v", b.ranges)
	}
}

func TestSetAccessors(t *testing.T) {
	s := New(Range{2, 4}, Range{6, 9})

	if got := s.Len(); got != 5 {
		t.Errorf("Len = %d, want 5", got)
	}
	if got := s.NumRanges(); got != 2 {
		t.Errorf("NumRanges = %d, want 2", got)
	}
	if mn, ok := s.Min(); !ok || mn != 2 {
		t.Errorf("Min = %d, %v", mn, ok)
	}
	if mx, ok := s.Max(); !ok || mx != 9 {
		t.Errorf("Max = %d, %v", mx, ok)
	}
	for i, want := range map[int]bool{1: false, 2: true, 3: true, 4: false, 5: false, 6: true, 8: true, 9: false} {
		if got := s.Contains(i); got != want {
			t.Errorf("Contains(%d) = %v, want %v", i, got, want)
		}
	}

	var empty Set
	if _, ok := empty.Min(); ok {
		t.Error("Min on empty set reported ok")
	}
	if _, ok := empty.Max(); ok {
		t.Error("Max on empty set reported ok")
	}
	if !empty.IsEmpty() {
		t.Error("IsEmpty = false for empty set")
	}
}
