package dataset

import "testing"

func TestHeaderIndexCell(t *testing.T) {
	d := New("ID", " Name ", "id")
	idx := d.Index()

	tests := []struct {
		name   string
		row    []string
		column string
		want   string
		wantOK bool
	}{
		{"exact", []string{"1", "Ann"}, "ID", "1", true},
		{"case and space insensitive", []string{"1", " Ann "}, "name", "Ann", true},
		{"duplicate header keeps first", []string{"1", "Ann", "2"}, "id", "1", true},
		{"short row", []string{"1"}, "Name", "", true},
		{"unknown column", []string{"1", "Ann"}, "email", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := idx.Cell(tt.row, tt.column)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Cell() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAppendRejectsWideRow(t *testing.T) {
	d := New("a", "b")
	if err := d.Append([]string{"1", "2"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := d.Append([]string{"1", "2", "3"}); err == nil {
		t.Error("Append() expected error for row wider than headers")
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestDictPadsMissingCells(t *testing.T) {
	d := New("a", "b")
	got := d.Dict([]string{"x"})
	if got["a"] != "x" || got["b"] != "" {
		t.Errorf("Dict() = %v, want map[a:x b:]", got)
	}
}
