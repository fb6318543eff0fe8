package platform

import "testing"

func TestResolveCargoHome_FlagPriority(t *testing.T) {
	p := &Platform{homeDir: "/tmp"}
	t.Setenv("DB_YARD_CARGO_HOME", "/env/cargo")

	if got := p.ResolveCargoHome("/flag/cargo"); got != "/flag/cargo" {
		t.Errorf("ResolveCargoHome = %q, want flag value", got)
	}
}

func TestResolveCargoHome_EnvPriority(t *testing.T) {
	p := &Platform{homeDir: "/tmp"}
	t.Setenv("DB_YARD_CARGO_HOME", "/env/cargo")

	if got := p.ResolveCargoHome(""); got != "/env/cargo" {
		t.Errorf("ResolveCargoHome = %q, want env value", got)
	}
}

func TestResolveCargoHome_Default(t *testing.T) {
	p := &Platform{homeDir: "/tmp"}
	t.Setenv("DB_YARD_CARGO_HOME", "")

	if got := p.ResolveCargoHome(""); got != "." {
		t.Errorf("ResolveCargoHome = %q, want \".\"", got)
	}
}

func TestResolveLedgerRoot_FlagPriority(t *testing.T) {
	p := &Platform{homeDir: "/tmp"}
	t.Setenv("DB_YARD_SPAWN_STATE_HOME", "/env/ledger")

	if got := p.ResolveLedgerRoot("/flag/ledger"); got != "/flag/ledger" {
		t.Errorf("ResolveLedgerRoot = %q, want flag value", got)
	}
}

func TestResolveLedgerRoot_EnvPriority(t *testing.T) {
	p := &Platform{homeDir: "/tmp"}
	t.Setenv("DB_YARD_SPAWN_STATE_HOME", "/env/ledger")

	if got := p.ResolveLedgerRoot(""); got != "/env/ledger" {
		t.Errorf("ResolveLedgerRoot = %q, want env value", got)
	}
}

func TestResolveLedgerRoot_DefaultIsNonEmpty(t *testing.T) {
	p := &Platform{homeDir: "/tmp"}
	t.Setenv("DB_YARD_SPAWN_STATE_HOME", "")

	if got := p.ResolveLedgerRoot(""); got == "" {
		t.Error("ResolveLedgerRoot() with no flag/env should still resolve a default, got empty string")
	}
}
