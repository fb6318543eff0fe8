package httpd

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dbyard/db-yard/internal/pathutil"
)

// adminIndex serves GET /.admin/index.html: an HTML listing of every file
// under the session home, linking to /.admin/files/<rel> (spec §6).
func (h *Handler) adminIndex(w http.ResponseWriter, r *http.Request) {
	var rels []string
	err := filepath.WalkDir(h.home, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort listing; one bad entry doesn't fail the page
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(h.home, path)
		if relErr != nil {
			return nil
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && h.log != nil {
		h.log.Error("admin: walk session home failed", "err", err)
	}
	sort.Strings(rels)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>db-yard session files</title></head><body>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n<ul>\n", html.EscapeString(h.home))
	for _, rel := range rels {
		escaped := html.EscapeString(rel)
		fmt.Fprintf(&b, "<li><a href=\"/.admin/files/%s\">%s</a></li>\n", escaped, escaped)
	}
	b.WriteString("</ul>\n</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(b.String()))
}

// adminFile serves GET /.admin/files/<rel>: a raw file from the session
// home, with path-containment enforced against directory-traversal escapes
// (spec §6, grounded on pathutil.ContainsPath).
func (h *Handler) adminFile(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/.admin/files/")
	if rel == "" {
		h.writeError(w, http.StatusBadRequest, "missing file path")
		return
	}
	target := filepath.Join(h.home, filepath.FromSlash(rel))
	if !pathutil.ContainsPath(h.home, target) {
		h.writeError(w, http.StatusForbidden, "path escapes session home")
		return
	}
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		h.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, target)
}
