package commands

import (
	"testing"
)

func TestParseTaskRef_NumericOnly(t *testing.T) {
	ref, err := ParseTaskRef([]string{"5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ByID {
		t.Error("expected ByID to be false")
	}
	if ref.TaskNum != 5 {
		t.Errorf("expected TaskNum 5, got %d", ref.TaskNum)
	}
}

func TestParseTaskRef_ExtraArgsIgnored(t *testing.T) {
	ref, err := ParseTaskRef([]string{"2", "new", "text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.TaskNum != 2 {
		t.Errorf("expected TaskNum 2, got %d", ref.TaskNum)
	}
}

func TestParseTaskRef_ByID(t *testing.T) {
	ref, err := ParseTaskRef([]string{"id:1715000000123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ref.ByID {
		t.Error("expected ByID to be true")
	}
	if ref.ID != 1715000000123 {
		t.Errorf("expected ID 1715000000123, got %d", ref.ID)
	}
}

func TestParseTaskRef_Invalid(t *testing.T) {
	tests := []string{"abc", "a1", "id:", "id:x7", "-1", "1.5", "١"}
	for _, arg := range tests {
		_, err := ParseTaskRef([]string{arg})
		if err == nil {
			t.Errorf("%q: expected error", arg)
			continue
		}
		expectedMsg := "invalid task reference: " + arg
		if err.Error() != expectedMsg {
			t.Errorf("expected %q, got %q", expectedMsg, err.Error())
		}
	}
}

func TestParseTaskRef_NoArgs_Error(t *testing.T) {
	_, err := ParseTaskRef([]string{})
	if err == nil {
		t.Fatal("expected error for no args")
	}
	if err != ErrTaskRefRequired {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
}

func TestIsAllDigits(t *testing.T) {
	tests := map[string]bool{
		"":    false,
		"0":   true,
		"123": true,
		"12a": false,
		"٣":   false,
	}
	for in, want := range tests {
		if got := isAllDigits(in); got != want {
			t.Errorf("isAllDigits(%q) = %v, want %v", in, got, want)
		}
	}
}
