package domain

import (
	"encoding/json"
	"testing"
)

func TestChoicesAllows(t *testing.T) {
	t.Parallel()

	if !AllKeys().Allows("x") {
		t.Fatal("ALL_KEYS must allow any key")
	}
	if NoKeys().Allows("x") || NoKeys().AcceptsAny() {
		t.Fatal("NO_KEYS must allow nothing")
	}
	set := KeySet("F", "j")
	if !set.Allows("f") || !set.Allows("J") {
		t.Fatal("key set must compare case-insensitively")
	}
	if set.Allows("k") {
		t.Fatal("key outside the set must be rejected")
	}
}

func TestChoicesJSON(t *testing.T) {
	t.Parallel()

	var c Choices
	if err := json.Unmarshal([]byte(`"NO_KEYS"`), &c); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if c.Mode != ChoicesNone {
		t.Fatalf("expected NO_KEYS, got %v", c)
	}
	if err := json.Unmarshal([]byte(`["a"," "]`), &c); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if c.Mode != ChoicesSet || len(c.Keys) != 2 {
		t.Fatalf("unexpected set %+v", c)
	}
	raw, err := json.Marshal(AllKeys())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"ALL_KEYS"` {
		t.Fatalf("unexpected token %s", raw)
	}
	if err := json.Unmarshal([]byte(`12`), &c); err == nil {
		t.Fatal("expected error for numeric choices")
	}
}
