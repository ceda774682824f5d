package template

import (
	"strings"
	"testing"
)

func TestSubstitute_NoPlaceholders(t *testing.T) {
	text := "TestUser"

	result, err := Substitute(text, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != text {
		t.Errorf("expected %q, got %q", text, result)
	}
}

func TestSubstitute_UserVariables(t *testing.T) {
	vars := Vars{"user_id": "user_a1b2c3"}

	result, err := Substitute("TestUser_${user_id}", vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "TestUser_user_a1b2c3" {
		t.Errorf("expected 'TestUser_user_a1b2c3', got %q", result)
	}

	result, err = Substitute("${user_id}@example.com", vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "user_a1b2c3@example.com" {
		t.Errorf("unexpected email %q", result)
	}
}

func TestSubstitute_EnvironmentVariable(t *testing.T) {
	t.Setenv("TEST_SHOP_BASE", "http://shop.local")

	result, err := Substitute("${env:TEST_SHOP_BASE}/products", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "http://shop.local/products" {
		t.Errorf("unexpected result %q", result)
	}
}

func TestSubstitute_EnvDefault(t *testing.T) {
	result, err := Substitute("${env:TRAFFICGEN_SURELY_UNSET:-fallback}", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "fallback" {
		t.Errorf("expected fallback, got %q", result)
	}
}

func TestSubstitute_MultipleErrors(t *testing.T) {
	_, err := Substitute("${missing_a} ${env:TRAFFICGEN_SURELY_UNSET} ${missing_b}", Vars{})
	if err == nil {
		t.Fatal("expected error")
	}

	msg := err.Error()
	for _, want := range []string{"missing_a", "TRAFFICGEN_SURELY_UNSET", "missing_b"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should mention %s", msg, want)
		}
	}
}

func TestSubstitute_FakeKind(t *testing.T) {
	result, err := Substitute("${fake:name}", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == "" || strings.Contains(result, "${") {
		t.Errorf("fake name not rendered: %q", result)
	}

	_, err = Substitute("${fake:spaceship}", nil)
	if err == nil || !strings.Contains(err.Error(), "unknown fake kind") {
		t.Errorf("expected unknown fake kind error, got %v", err)
	}
}

func TestSubstituteMap(t *testing.T) {
	fields := map[string]string{
		"username": "${user_id}",
		"age":      "${age}",
	}

	result, err := SubstituteMap(fields, Vars{"user_id": "user_x", "age": "33"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["username"] != "user_x" || result["age"] != "33" {
		t.Errorf("unexpected result %v", result)
	}

	if m, err := SubstituteMap(nil, nil); m != nil || err != nil {
		t.Errorf("nil map should pass through, got %v %v", m, err)
	}

	_, err = SubstituteMap(map[string]string{"x": "${nope}"}, Vars{})
	if err == nil || !strings.Contains(err.Error(), `field "x"`) {
		t.Errorf("expected field error, got %v", err)
	}
}

func TestExpandEnv_LeavesOtherPlaceholders(t *testing.T) {
	t.Setenv("TEST_BUS_TOPIC", "events")

	in := "topic: ${env:TEST_BUS_TOPIC}\nname: TestUser_${user_id}\n"
	out, err := ExpandEnv(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "topic: events\nname: TestUser_${user_id}\n"
	if out != want {
		t.Errorf("ExpandEnv = %q, want %q", out, want)
	}
}

func TestExpandEnv_Missing(t *testing.T) {
	_, err := ExpandEnv("secret: ${env:TRAFFICGEN_SURELY_UNSET}")
	if err == nil {
		t.Error("expected error for unset env var")
	}
}
