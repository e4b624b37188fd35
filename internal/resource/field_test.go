package resource

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{`="00123"`, "00123"},
		{"=42", "42"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFieldConvert(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		raw     string
		want    string
		wantErr string
	}{
		{"text", Field{Column: "name"}, " Ada ", "Ada", ""},
		{"optional empty", Field{Column: "name"}, "", "", ""},
		{"required empty", Field{Column: "name", Required: true}, " ", "", "name: required field is empty"},
		{"enum case folded", Field{Column: "tier", Type: FieldEnum, Choices: []string{"Gold", "Silver"}}, "gold", "Gold", ""},
		{"enum invalid", Field{Column: "tier", Type: FieldEnum, Choices: []string{"Gold"}}, "bronze", "", `tier: invalid enum "bronze"`},
		{"iso date", Field{Column: "d", Type: FieldDate}, "2024-03-05", "2024-03-05", ""},
		{"us date", Field{Column: "d", Type: FieldDate}, "3/5/2024", "2024-03-05", ""},
		{"bad date", Field{Column: "d", Type: FieldDate}, "soon", "", `d: invalid date "soon"`},
		{"currency", Field{Column: "amt", Type: FieldNumeric}, "$1,234.50", "1234.50", ""},
		{"accounting negative", Field{Column: "amt", Type: FieldNumeric}, "(12.5)", "-12.5", ""},
		{"bad number", Field{Column: "amt", Type: FieldNumeric}, "12abc", "", `amt: invalid number "12abc"`},
		{"bool yes", Field{Column: "ok", Type: FieldBool}, "Yes", "true", ""},
		{"bool zero", Field{Column: "ok", Type: FieldBool}, "0", "false", ""},
		{"bad bool", Field{Column: "ok", Type: FieldBool}, "maybe", "", `ok: invalid bool "maybe"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Convert(tt.raw)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("Convert(%q) error = %v, want %q", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Convert(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Convert(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFieldAttr(t *testing.T) {
	if got := (Field{Column: "Customer Name"}).Attr(); got != "Customer Name" {
		t.Errorf("Attr() = %q, want column name", got)
	}
	if got := (Field{Column: "Customer Name", Attribute: "name"}).Attr(); got != "name" {
		t.Errorf("Attr() = %q, want %q", got, "name")
	}
}

func TestResourceValidate(t *testing.T) {
	tests := []struct {
		name    string
		res     Resource
		wantErr bool
	}{
		{"ok", Resource{Name: "r", KeyField: "id", Fields: []Field{{Column: "id"}}}, false},
		{"no key", Resource{Name: "r", Fields: []Field{{Column: "id"}}}, true},
		{"no fields", Resource{Name: "r", KeyField: "id"}, true},
		{"key not a field", Resource{Name: "r", KeyField: "id", Fields: []Field{{Column: "name"}}}, true},
		{"enum without choices", Resource{Name: "r", KeyField: "id", Fields: []Field{{Column: "id"}, {Column: "t", Type: FieldEnum}}}, true},
		{"bad operation", Resource{Name: "r", KeyField: "id", Fields: []Field{{Column: "id"}}, Operations: []Operation{"delete"}}, true},
	}
	for _, tt := range tests {
		err := tt.res.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
