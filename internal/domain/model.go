// Package domain holds the core data model and port interfaces shared by
// every db-yard component. Dependencies flow one way, into domain.
package domain

import "time"

// Kind is the driver selector decided by the classifier.
type Kind string

const (
	KindSqlpage     Kind = "sqlpage"
	KindSurveilr    Kind = "surveilr"
	KindPlainSQLite Kind = "plain-sqlite"
	KindOther       Kind = "other"
)

// SidecarVariant is a heterogeneous scalar-or-JSON value read from a
// `.db-yard` sidecar table or override file.
type SidecarVariant struct {
	Null   bool
	Bool   *bool
	Int    *int64
	Float  *float64
	String *string
	JSON   any // parsed JSON blob; nil unless the raw value was a JSON document
}

// StringOr returns the string accessor or def if the variant isn't a string.
func (v SidecarVariant) StringOr(def string) string {
	if v.String != nil {
		return *v.String
	}
	return def
}

// IntOr returns the int accessor or def if the variant isn't an int.
func (v SidecarVariant) IntOr(def int64) int64 {
	if v.Int != nil {
		return *v.Int
	}
	return def
}

// BoolOr returns the bool accessor or def if the variant isn't a bool.
func (v SidecarVariant) BoolOr(def bool) bool {
	if v.Bool != nil {
		return *v.Bool
	}
	return def
}

// Sidecar is the decoded `.db-yard` key/value table (or override file).
type Sidecar map[string]SidecarVariant

// Candidate is a file encountered by discovery. Transient — exists only for
// the duration of one reconciliation pass.
type Candidate struct {
	Path       string // absolute
	Size       int64
	ModTime    time.Time
	Root       string // absolute root the file was discovered under, set by discovery
	SidecarRef string // path to an optional <db>.db-yard.yaml override, if present
}

// Classification is the classifier's decision for one candidate.
type Classification struct {
	Kind  Kind
	Note  string // set for unreadable/unknown databases; never fatal
	Error error
}

// Exposable reports whether this classification can become a running service.
func (c Classification) Exposable() bool {
	return c.Kind == KindSqlpage || c.Kind == KindSurveilr
}

// SupplierNature describes where the backing file came from. db-yard only
// discovers local files today, but the field exists so the manifest schema
// does not need to change if other suppliers are added later.
type SupplierNature string

const SupplierLocalFile SupplierNature = "local-file"

// ExposableService is a classification that can be spawned.
type ExposableService struct {
	ID                  string // stable given the same roots and file path
	Kind                Kind
	Label               string
	ProxyEndpointPrefix string
	Candidate           Candidate
	Sidecar             Sidecar
}

// SpawnPlan is a pure description of how to launch a child for a service.
// Never contains a PID.
type SpawnPlan struct {
	Command    string
	Argv       []string
	Env        []string
	Cwd        string
	StdoutPath string
	StderrPath string
	Tag        ProcessTag
}

// ProcessTag carries the three environment variables that let the tag index
// (C7) recognize a process as owned by db-yard.
type ProcessTag struct {
	SessionID   string
	ServiceID   string
	ContextPath string
}

// EnvPairs returns the tag as DB_YARD_* environment assignments.
func (t ProcessTag) EnvPairs() []string {
	return []string{
		"DB_YARD_CONTEXT_PATH=" + t.ContextPath,
		"DB_YARD_SESSION_ID=" + t.SessionID,
		"DB_YARD_SERVICE_ID=" + t.ServiceID,
	}
}

// SpawnedContext is the durable per-service manifest (spec §3, §6).
type SpawnedContext struct {
	StartedAt time.Time `json:"startedAt"`
	Session   struct {
		SessionID string    `json:"sessionId"`
		Host      string    `json:"host"`
		StartedAt time.Time `json:"startedAt"`
	} `json:"session"`
	Service struct {
		ID                  string `json:"id"`
		Kind                Kind   `json:"kind"`
		Label               string `json:"label"`
		ProxyEndpointPrefix string `json:"proxyEndpointPrefix"`
		UpstreamURL         string `json:"upstreamUrl"`
	} `json:"service"`
	Supplier struct {
		Location string         `json:"location"`
		Size     int64          `json:"size"`
		ModTime  time.Time      `json:"mtime"`
		Kind     Kind           `json:"kind"`
		Nature   SupplierNature `json:"nature"`
	} `json:"supplier"`
	Listen struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		BaseURL  string `json:"baseUrl"`
		ProbeURL string `json:"probeUrl"`
	} `json:"listen"`
	Spawned struct {
		PID  int       `json:"pid"`
		Plan SpawnPlan `json:"plan"`
	} `json:"spawned"`
	Paths struct {
		Context string `json:"context"`
		Stdout  string `json:"stdout"`
		Stderr  string `json:"stderr"`
	} `json:"paths"`
	Owner struct {
		OwnerToken    string `json:"ownerToken"`
		SupervisorPID int    `json:"supervisorPid"`
		Host          string `json:"host"`
		StartedAtMs   int64  `json:"startedAtMs"`
	} `json:"owner"`
	DBYardConfig Sidecar           `json:"dbYardConfig,omitempty"`
	SpawnedCtx   map[string]string `json:"spawnedCtx,omitempty"`

	// LastSeenAtMs is reconciliation bookkeeping, not one of the schema's
	// required keys, but persisted so a fresh session can tell freshness
	// apart from a record nobody has touched since a crash.
	LastSeenAtMs int64 `json:"lastSeenAtMs,omitempty"`
}

// TaggedProcess is an OS process observed to carry db-yard's ownership tags.
type TaggedProcess struct {
	PID         int
	SessionID   string
	ServiceID   string
	ContextPath string
	Issue       string // set when enrichment failed or the pid disagreed with the context
}

// DiscrepancyKind enumerates the three reconciliation discrepancy shapes.
type DiscrepancyKind string

const (
	ProcessWithoutLedger     DiscrepancyKind = "process_without_ledger"
	LedgerWithoutProcess     DiscrepancyKind = "ledger_without_process"
	ProcessAndLedgerMismatch DiscrepancyKind = "process_and_ledger_mismatch"
)

// Discrepancy is one item yielded by `reconcile` (spec §4.9).
type Discrepancy struct {
	Kind      DiscrepancyKind
	ServiceID string
	PID       int
	Detail    string
}

// Unhandled records a discovered file that matched no glob for its root —
// never an error, just a discovery-summary note (spec §4.1).
type Unhandled struct {
	Path string
	Root string
}

