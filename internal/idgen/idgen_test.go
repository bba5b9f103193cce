package idgen

import (
	"strings"
	"testing"
)

func TestReference(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref, err := Reference()
		if err != nil {
			t.Fatalf("Reference: %v", err)
		}
		if !strings.HasPrefix(ref, DefaultPrefix) {
			t.Fatalf("ref %q missing prefix %q", ref, DefaultPrefix)
		}
		body := strings.TrimPrefix(ref, DefaultPrefix)
		if len(body) != Length {
			t.Fatalf("ref %q body length = %d, want %d", ref, len(body), Length)
		}
		for _, c := range body {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("ref %q contains %q outside alphabet", ref, c)
			}
		}
		if seen[ref] {
			t.Fatalf("duplicate ref %q", ref)
		}
		seen[ref] = true
	}
}

func TestWithPrefix(t *testing.T) {
	ref, err := WithPrefix("X-")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref, "X-") {
		t.Errorf("ref = %q", ref)
	}
}
