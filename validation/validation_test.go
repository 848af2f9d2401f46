package validation

import "testing"

func TestRequired(t *testing.T) {
	v := Violations{}
	Required("email", "a@b.ml", v)
	Required("password", "   ", v)
	if v.Empty() {
		t.Fatal("expected violations")
	}
	if _, ok := v["email"]; ok {
		t.Error("email should pass")
	}
	if v["password"] != "required" {
		t.Errorf("password violation = %q, want required", v["password"])
	}
}

func TestRequiredInt(t *testing.T) {
	v := Violations{}
	zero := 0
	annee := 2025
	RequiredInt("a", nil, v)
	RequiredInt("b", &zero, v)
	RequiredInt("c", &annee, v)
	if v["a"] != "required" || v["b"] != "required" {
		t.Error("nil and zero must be violations")
	}
	if _, ok := v["c"]; ok {
		t.Error("non-zero value should pass")
	}
}

func TestOneOf(t *testing.T) {
	v := Violations{}
	OneOf("role", "agent", []string{"agent", "validateur", "admin"}, v)
	OneOf("decision", "peut-etre", []string{"valide", "rejete"}, v)
	if _, ok := v["role"]; ok {
		t.Error("known value should pass")
	}
	if v["decision"] != "invalid_value" {
		t.Errorf("decision violation = %q", v["decision"])
	}
}
