package sidecar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dbyard/db-yard/internal/domain"
)

func TestLoadOverrideFile_MissingFileIsEmpty(t *testing.T) {
	l := New(nil)
	got, err := l.LoadOverrideFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %+v, want empty", got)
	}
}

func TestLoadOverrideFile_ParsesScalars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.db.db-yard.yaml")
	body := "kind: web\nport: 9090\nenabled: true\nlabel: null\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	l := New(nil)
	got, err := l.LoadOverrideFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s := got["kind"].String; s == nil || *s != "web" {
		t.Errorf("kind = %+v, want \"web\"", got["kind"])
	}
	if f := got["port"].Float; f == nil || *f != 9090 {
		t.Errorf("port = %+v, want 9090", got["port"])
	}
	if b := got["enabled"].Bool; b == nil || *b != true {
		t.Errorf("enabled = %+v, want true", got["enabled"])
	}
	if !got["label"].Null {
		t.Errorf("label = %+v, want Null", got["label"])
	}
}

func TestLoadOverrideFile_InvalidYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	l := New(nil)
	if _, err := l.LoadOverrideFile(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestMerge_OverrideWins(t *testing.T) {
	baseStr := "base"
	overrideStr := "override"
	base := domain.Sidecar{
		"kind": domain.SidecarVariant{String: &baseStr},
		"only": domain.SidecarVariant{String: &baseStr},
	}
	override := domain.Sidecar{
		"kind": domain.SidecarVariant{String: &overrideStr},
	}

	got := Merge(base, override)

	if s := got["kind"].String; s == nil || *s != "override" {
		t.Errorf("kind = %+v, want \"override\"", got["kind"])
	}
	if s := got["only"].String; s == nil || *s != "base" {
		t.Errorf("only = %+v, want \"base\"", got["only"])
	}
}

func TestDecodeVariant(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want func(domain.SidecarVariant) bool
	}{
		{"empty is null", "", func(v domain.SidecarVariant) bool { return v.Null }},
		{"json string", `"web"`, func(v domain.SidecarVariant) bool { return v.String != nil && *v.String == "web" }},
		{"json number", `42`, func(v domain.SidecarVariant) bool { return v.Float != nil && *v.Float == 42 }},
		{"json bool", `true`, func(v domain.SidecarVariant) bool { return v.Bool != nil && *v.Bool }},
		{"malformed falls back to raw string", `{not json`, func(v domain.SidecarVariant) bool {
			return v.String != nil && *v.String == `{not json`
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeVariant(tc.raw)
			if !tc.want(got) {
				t.Errorf("decodeVariant(%q) = %+v, did not satisfy expectation", tc.raw, got)
			}
		})
	}
}
