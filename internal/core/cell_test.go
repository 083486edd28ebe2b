package core

import (
	"encoding/json"
	"testing"
)

func TestCellValue_Text(t *testing.T) {
	tests := []struct {
		v    CellValue
		want string
	}{
		{Null(), ""},
		{String("Foo"), "Foo"},
		{Number(1), "1"},
		{Number(1.5), "1.5"},
		{Number(-0.25), "-0.25"},
		{Number(100000000), "100000000"},
		{Bool(true), "true"},
		{Bool(false), "false"},
	}

	for _, tt := range tests {
		if got := tt.v.Text(); got != tt.want {
			t.Errorf("%#v.Text() = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestCellValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b CellValue
		want bool
	}{
		{"null null", Null(), Null(), true},
		{"same string", String("a"), String("a"), true},
		{"different string", String("a"), String("A"), false},
		{"number vs string", Number(1), String("1"), false},
		{"same number", Number(2.5), Number(2.5), true},
		{"bool vs string", Bool(true), String("true"), false},
		{"zero value is null", CellValue{}, Null(), true},
		{"empty string is not null", String(""), Null(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCellValue_JSONShape(t *testing.T) {
	row := []CellValue{Null(), String("x"), Number(3), Bool(false)}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got, want := string(data), `[null,"x",3,false]`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	var back []CellValue
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for i := range row {
		if !back[i].Equal(row[i]) {
			t.Errorf("cell %d = %#v, want %#v", i, back[i], row[i])
		}
	}
}

func TestCellValue_UnmarshalRejectsObjects(t *testing.T) {
	var v CellValue
	if err := json.Unmarshal([]byte(`{"a":1}`), &v); err == nil {
		t.Error("expected error for object cell value")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		v    CellValue
		want string
	}{
		{String("Foo BAR"), "foo bar"},
		{Bool(true), "true"},
		{Number(42), "42"},
		{Null(), ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.v); got != tt.want {
			t.Errorf("Normalize(%#v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
