package token

import "testing"

func TestGenerate_UUIDFormat(t *testing.T) {
	g := NewUUIDGenerator()
	tok, err := g.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if len(tok) != 36 {
		t.Errorf("expected 36-char UUID string, got %d: %q", len(tok), tok)
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	g := NewUUIDGenerator()
	t1, _ := g.Generate()
	t2, _ := g.Generate()
	if t1 == t2 {
		t.Error("consecutive tokens should differ")
	}
}
