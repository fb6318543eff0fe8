package pathutil

import "testing"

func TestProxyPrefixFromRel(t *testing.T) {
	tests := []struct {
		name string
		rel  string
		want string
	}{
		{"simple", "app.sqlpage.db", "/app.sqlpage"},
		{"nested", "sub/app.sqlpage.db", "/sub/app.sqlpage"},
		{"root itself", "", "/"},
		{"leading slash", "/app.db", "/app"},
		{"backslashes", `sub\app.db`, "/sub/app"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProxyPrefixFromRel(tt.rel)
			if got != tt.want {
				t.Errorf("ProxyPrefixFromRel(%q) = %q, want %q", tt.rel, got, tt.want)
			}
		})
	}
}

func TestProxyPrefixFromRel_FixedPoint(t *testing.T) {
	inputs := []string{"app.sqlpage.db", "sub/app.db", "", "/already/prefixed"}
	for _, in := range inputs {
		once := ProxyPrefixFromRel(in)
		twice := ProxyPrefixFromRel(once)
		if once != twice {
			t.Errorf("not a fixed point: ProxyPrefixFromRel(%q) = %q, but applying again gives %q", in, once, twice)
		}
	}
}

func TestBestMatchingRoot_LongestPrefix(t *testing.T) {
	roots := []string{"/tmp/cargo", "/tmp/cargo/sub"}
	got := BestMatchingRoot("/tmp/cargo/sub/app.db", roots)
	if got != "/tmp/cargo/sub" {
		t.Errorf("got %q, want /tmp/cargo/sub", got)
	}
}

func TestBestMatchingRoot_NoMatch(t *testing.T) {
	got := BestMatchingRoot("/elsewhere/app.db", []string{"/tmp/cargo"})
	if got != "" {
		t.Errorf("expected no match, got %q", got)
	}
}

func TestContainsPath(t *testing.T) {
	if !ContainsPath("/tmp/session", "/tmp/session/foo.json") {
		t.Error("expected containment")
	}
	if ContainsPath("/tmp/session", "/tmp/session-other/foo.json") {
		t.Error("expected no containment for sibling-prefix directory")
	}
	if ContainsPath("/tmp/session", "/tmp/other/foo.json") {
		t.Error("expected no containment for unrelated path")
	}
}
