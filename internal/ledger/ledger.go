// Package ledger implements the durable spawned-state store (C6): session
// directory layout, atomic manifest writes, the pid-file, and the owner
// token. Grounded on the teacher's internal/adapter/store.FileStore (session
// directory bookkeeping) and its downloader/extractor's temp-file+rename
// idiom for atomic writes, generalized to the full ledger layout of spec §6.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/pathutil"
)

const (
	currentSessionFile = ".current-session"
	ownerTokenFile      = ".db-yard.owner-token"
	pidFile             = "spawned-pids.txt"
	sessionTimeLayout   = "2006-01-02-15-04-05"
)

// Session owns one session directory under the ledger root.
type Session struct {
	ledgerRoot string
	home       string
	sessionID  string
	ownerToken string
	host       string
	startedAt  time.Time
}

// NewSession creates a new session directory under ledgerRoot, writes the
// owner-token file, and points .current-session at it (spec §3, §6).
func NewSession(ledgerRoot string, tokens domain.TokenGenerator) (*Session, error) {
	if err := os.MkdirAll(ledgerRoot, 0755); err != nil {
		return nil, fmt.Errorf("create ledger root: %w", err)
	}

	now := time.Now()
	stamp := now.UTC().Format(sessionTimeLayout)
	name := stamp
	home := filepath.Join(ledgerRoot, name)
	// Each session gets a directory of its own: a second session started
	// within the same second gets a "-N" suffix instead of sharing one.
	for i := 1; ; i++ {
		err := os.Mkdir(home, 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create session home: %w", err)
		}
		name = fmt.Sprintf("%s-%d", stamp, i)
		home = filepath.Join(ledgerRoot, name)
	}

	ownerToken, err := tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate owner token: %w", err)
	}
	if err := writeOwnerToken(home, ownerToken); err != nil {
		return nil, err
	}

	sessionID, err := tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	if err := writePointer(ledgerRoot, name); err != nil {
		return nil, err
	}

	host, _ := os.Hostname()

	return &Session{
		ledgerRoot: ledgerRoot,
		home:       home,
		sessionID:  sessionID,
		ownerToken: ownerToken,
		host:       host,
		startedAt:  now,
	}, nil
}

// CurrentSessionHome resolves the .current-session pointer at ledgerRoot.
func CurrentSessionHome(ledgerRoot string) (string, error) {
	data, err := os.ReadFile(filepath.Join(ledgerRoot, currentSessionFile))
	if err != nil {
		return "", fmt.Errorf("read current-session pointer: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", fmt.Errorf("empty current-session pointer")
	}
	return filepath.Join(ledgerRoot, name), nil
}

// ReadOwnerToken reads the owner-token file from a session home, used to
// tell whether a ledger record under that home is foreign (spec §4.5).
func ReadOwnerToken(home string) (string, error) {
	data, err := os.ReadFile(filepath.Join(home, ownerTokenFile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writeOwnerToken(home, token string) error {
	lock := flock.New(filepath.Join(home, ownerTokenFile+".lock"))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock owner token: %w", err)
	}
	defer lock.Unlock()
	return atomicWrite(filepath.Join(home, ownerTokenFile), []byte(token))
}

func writePointer(ledgerRoot, name string) error {
	return atomicWrite(filepath.Join(ledgerRoot, currentSessionFile), []byte(name+"\n"))
}

// SessionHome returns the session directory path.
func (s *Session) SessionHome() string { return s.home }

// OwnerToken returns this session's owner token.
func (s *Session) OwnerToken() string { return s.ownerToken }

// SessionID returns this session's id.
func (s *Session) SessionID() string { return s.sessionID }

// Host returns the local hostname recorded at session creation.
func (s *Session) Host() string { return s.host }

// StartedAt returns when this session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// ContextPath returns the manifest path for svc, mirroring the source
// file's path relative to its best-matching root and disambiguating same-
// basename services with a deterministic hash of the service id (spec §3).
func (s *Session) ContextPath(root string, svc domain.ExposableService) string {
	rel := pathutil.RelativeToRoot(svc.Candidate.Path, root)
	dir := filepath.Dir(rel)
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	filename := fmt.Sprintf("%s.%s.context.json", base, pathutil.Fnv1a32Hex(svc.ID))
	if dir == "." {
		return filepath.Join(s.home, filename)
	}
	return filepath.Join(s.home, dir, filename)
}

func logPaths(contextPath string) (stdout, stderr string) {
	base := strings.TrimSuffix(contextPath, ".context.json")
	return base + ".stdout.log", base + ".stderr.log"
}

// LogPaths returns the stdout/stderr sibling log paths for a context file.
func (s *Session) LogPaths(contextPath string) (stdout, stderr string) {
	return logPaths(contextPath)
}

// WriteContext atomically persists ctx to its context path (spec §4.5, §5).
func (s *Session) WriteContext(contextPath string, ctx domain.SpawnedContext) error {
	if err := os.MkdirAll(filepath.Dir(contextPath), 0755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	return atomicWrite(contextPath, data)
}

// RemoveContext deletes a manifest file. Missing files are not an error.
func (s *Session) RemoveContext(contextPath string) error {
	if err := os.Remove(contextPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove context %s: %w", contextPath, err)
	}
	return nil
}

// RewritePIDFile atomically rewrites spawned-pids.txt with the sorted,
// deduplicated pid list. A no-op if the content is unchanged (spec §4.5,
// testable property 5).
func (s *Session) RewritePIDFile(pids []int) error {
	lock := flock.New(filepath.Join(s.home, pidFile+".lock"))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock pid file: %w", err)
	}
	defer lock.Unlock()

	sorted := dedupSortInts(pids)
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = strconv.Itoa(p)
	}
	content := []byte(strings.Join(parts, " "))

	path := filepath.Join(s.home, pidFile)
	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == string(content) {
		return nil
	}
	return atomicWrite(path, content)
}

func dedupSortInts(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

// atomicWrite writes data to <path>.tmp then renames it onto path.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
