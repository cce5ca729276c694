package store

import "testing"

func TestParseRawLinesCanonicalShape(t *testing.T) {
	set := ParseRawLines([]byte(`[{"id":1,"quantity":2},{"id":5,"quantity":1}]`))

	if len(set) != 2 {
		t.Fatalf("lines: got %d, want 2", len(set))
	}
	if set[1] != 2 || set[5] != 1 {
		t.Errorf("quantities: got %v", set)
	}
}

func TestParseRawLinesHistoricalSpellings(t *testing.T) {
	set := ParseRawLines([]byte(`[
		{"product_id":1,"qty":2},
		{"productId":2,"quantity":3}
	]`))

	if set[1] != 2 {
		t.Errorf("product_id/qty line: got %d, want 2", set[1])
	}
	if set[2] != 3 {
		t.Errorf("productId/quantity line: got %d, want 3", set[2])
	}
}

func TestParseRawLinesDropsInvalidLines(t *testing.T) {
	set := ParseRawLines([]byte(`[
		{"id":1,"quantity":2},
		{"id":2,"quantity":0},
		{"id":3,"quantity":-4},
		{"id":4,"quantity":1.5},
		{"id":-9,"quantity":1},
		{"quantity":3},
		{"id":5}
	]`))

	if len(set) != 1 {
		t.Fatalf("lines: got %v, want only product 1", set)
	}
	if set[1] != 2 {
		t.Errorf("quantity: got %d, want 2", set[1])
	}
}

func TestParseRawLinesMergesDuplicates(t *testing.T) {
	set := ParseRawLines([]byte(`[{"id":1,"quantity":2},{"id":1,"quantity":3}]`))

	if set[1] != 5 {
		t.Errorf("merged quantity: got %d, want 5", set[1])
	}
}

func TestParseRawLinesToleratesGarbage(t *testing.T) {
	for _, payload := range []string{"", "null", "{}", `"items"`, "[not json"} {
		set := ParseRawLines([]byte(payload))
		if len(set) != 0 {
			t.Errorf("payload %q: got %v, want empty set", payload, set)
		}
	}
}

func TestItemLineSetLinesSortedAndStable(t *testing.T) {
	set := ItemLineSet{9: 1, 2: 4, 5: 2}

	lines := set.Lines()
	if len(lines) != 3 {
		t.Fatalf("lines: got %d, want 3", len(lines))
	}
	for i, want := range []int64{2, 5, 9} {
		if lines[i].ProductID != want {
			t.Errorf("line %d: got product %d, want %d", i, lines[i].ProductID, want)
		}
	}
	if set.TotalQuantity() != 7 {
		t.Errorf("total: got %d, want 7", set.TotalQuantity())
	}
}

func TestItemLineSetCloneIsIndependent(t *testing.T) {
	set := ItemLineSet{1: 2}
	c := set.Clone()
	c[1] = 99

	if set[1] != 2 {
		t.Errorf("original mutated through clone: got %d", set[1])
	}
}
