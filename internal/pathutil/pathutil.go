// Package pathutil normalizes filesystem paths and derives proxy prefixes
// from them (C1). It has no dependency on any other db-yard package.
package pathutil

import (
	"hash/fnv"
	"path/filepath"
	"sort"
	"strings"
)

// NormalizeSlashes converts backslashes to forward slashes and collapses
// repeated separators, without touching case or trailing slashes.
func NormalizeSlashes(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// BestMatchingRoot returns the root with the longest absolute-path prefix
// match for path. Ties are broken by lexicographic order (spec §4.2).
func BestMatchingRoot(path string, roots []string) string {
	if len(roots) == 0 {
		return ""
	}
	cands := make([]string, 0, len(roots))
	for _, r := range roots {
		rc := filepath.Clean(r)
		pc := filepath.Clean(path)
		if pc == rc || strings.HasPrefix(pc, rc+string(filepath.Separator)) {
			cands = append(cands, rc)
		}
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool {
		if len(cands[i]) != len(cands[j]) {
			return len(cands[i]) > len(cands[j])
		}
		return cands[i] < cands[j]
	})
	return cands[0]
}

// RelativeToRoot returns path relative to root using forward slashes, or the
// basename of path if root is empty or not a prefix.
func RelativeToRoot(path, root string) string {
	if root == "" {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return NormalizeSlashes(rel)
}

// recognizedDBExts are the single-segment file extensions discovery matches
// by default (see discovery.DefaultGlobs' "*.db" and "*.sqlite"; "*.sqlite.db"
// is matched by its own outermost ".db" segment, same as any other ".db"
// file). A driver tag left over after stripping, like ".sqlpage" or
// ".surveilr", is not in this set, so it is never stripped on a later
// pass — which is what keeps ProxyPrefixFromRel a fixed point under
// repeated application.
var recognizedDBExts = map[string]bool{".db": true, ".sqlite": true}

// StripOutermostExt removes rel's outermost extension if, and only if, it is
// a recognized database extension, e.g. "app.sqlpage.db" -> "app.sqlpage".
// A path whose outermost extension isn't one of those (including a path
// already stripped, whose remaining extension is a driver tag) is returned
// unchanged.
func StripOutermostExt(rel string) string {
	ext := filepath.Ext(rel)
	if !recognizedDBExts[strings.ToLower(ext)] {
		return rel
	}
	return strings.TrimSuffix(rel, ext)
}

// ProxyPrefixFromRel derives an ExposableService's proxyEndpointPrefix from a
// root-relative path: strip the outermost extension, normalize slashes,
// ensure a single leading slash, and collapse an empty result to "/".
//
// This function is a fixed point under repeated application: feeding its own
// output back in yields the same value again.
func ProxyPrefixFromRel(rel string) string {
	rel = NormalizeSlashes(rel)
	rel = StripOutermostExt(rel)
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.TrimSuffix(rel, "/")
	if rel == "" {
		return "/"
	}
	return "/" + rel
}

// Fnv1a32Hex returns the deterministic 32-bit FNV-1a hash of s, as 8 lowercase
// hex digits. Used to disambiguate context-file and proxy-config filenames
// derived from a service id (spec §3, §6).
func Fnv1a32Hex(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmtHex32(h.Sum32())
}

func fmtHex32(v uint32) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf)
}

// ContainsPath reports whether target resolves to a location inside base,
// preventing directory-traversal escapes from admin file serving (spec §6).
func ContainsPath(base, target string) bool {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	absBase = filepath.Clean(absBase)
	absTarget = filepath.Clean(absTarget)
	if absTarget == absBase {
		return true
	}
	return strings.HasPrefix(absTarget, absBase+string(filepath.Separator))
}
