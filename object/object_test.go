package object

import "testing"

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"nil", NilValue, false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero int", Int(0), false},
		{"nonzero int", Int(1), true},
		{"zero float", Float(0), false},
		{"nonzero float", Float(0.5), true},
		{"empty string", String(""), false},
		{"nonempty string", String("x"), true},
		{"map", NewMap(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truthy(tt.value); got != tt.want {
				t.Errorf("Truthy(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestMapGetSet(t *testing.T) {
	m := NewMap()
	if _, ok := m.Get("missing"); ok {
		t.Fatal("expected Get on empty map to report not-found")
	}
	m.Set("name", String("value"))
	got, ok := m.Get("name")
	if !ok {
		t.Fatal("expected Get to find a key that was Set")
	}
	if got != String("value") {
		t.Errorf("expected String(\"value\"), got %v", got)
	}
}

func TestInspect(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{NilValue, "nil"},
		{Bool(true), "true"},
		{Int(42), "42"},
		{String("hi"), "hi"},
		{&Error{Value: String("bad")}, "error: bad"},
	}
	for _, tt := range tests {
		if got := tt.value.Inspect(); got != tt.want {
			t.Errorf("Inspect() = %q, want %q", got, tt.want)
		}
	}
}

func TestBuiltinInspectIncludesName(t *testing.T) {
	b := &Builtin{Name: "print", Fn: func(args []Value) (Value, error) { return NilValue, nil }}
	if b.Type() != "builtin" {
		t.Errorf("expected type 'builtin', got %q", b.Type())
	}
	want := "builtin print"
	if b.Inspect() != want {
		t.Errorf("Inspect() = %q, want %q", b.Inspect(), want)
	}
}
