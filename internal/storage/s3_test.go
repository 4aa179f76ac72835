package storage

import (
	"strings"
	"testing"
)

func TestNewObjectKeyScopedToOrg(t *testing.T) {
	key := NewObjectKey("org_abc")
	if !strings.HasPrefix(key, "orgs/org_abc/") {
		t.Errorf("expected org-scoped key, got %q", key)
	}
}

func TestNewObjectKeyUnique(t *testing.T) {
	a := NewObjectKey("org_abc")
	b := NewObjectKey("org_abc")
	if a == b {
		t.Errorf("expected unique keys, got %q twice", a)
	}
}
