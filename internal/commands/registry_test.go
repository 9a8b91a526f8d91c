package commands

import (
	"strings"
	"testing"
)

func TestRegistry_FindByAlias(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&RmCmd{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byName, ok := r.Find("rm")
	if !ok {
		t.Fatal("expected rm to be registered")
	}
	byAlias, ok := r.Find("delete")
	if !ok {
		t.Fatal("expected delete alias to be registered")
	}
	if byName != byAlias {
		t.Error("expected alias to resolve to the same command")
	}
}

func TestRegistry_Duplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&AddCmd{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := r.Register(&AddCmd{})
	if err == nil || err.Error() != "command already registered: add" {
		t.Errorf("expected duplicate name error, got %v", err)
	}

	err = r.Register(&FieldCmd{name: "create"})
	if err == nil || err.Error() != "command already registered: create" {
		t.Errorf("expected name clash with alias, got %v", err)
	}

	err = r.Register(&FieldCmd{name: ""})
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("expected empty name error, got %v", err)
	}
}

func TestRegistry_AllSortedUnique(t *testing.T) {
	var names []string
	for _, cmd := range DefaultRegistry.All() {
		names = append(names, cmd.Name())
	}

	expected := "add category clear done due edit endpoint export help import list login logout note priority rm serve status sync theme version watch"
	if got := strings.Join(names, " "); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}
