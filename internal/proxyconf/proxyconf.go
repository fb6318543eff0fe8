// Package proxyconf renders reverse-proxy configuration for nginx and
// traefik from the spawned-state ledger, as pure functions over
// []domain.SpawnedContext (spec §6 `proxy-conf`). Grounded on the sidecar
// loader's pattern of turning one domain value into one rendered artifact
// with no side effects; filenames borrow pathutil.Fnv1a32Hex for the same
// disambiguation role it plays in the classifier.
package proxyconf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/pathutil"
)

// Format selects which generator to use.
type Format string

const (
	Nginx   Format = "nginx"
	Traefik Format = "traefik"
)

// File is one rendered config artifact.
type File struct {
	Name    string
	Content string
}

// safeID replaces characters that are awkward in filenames or traefik
// router names with hyphens, leaving the original id to round-trip through
// fnv1a32Hex for disambiguation instead.
func safeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func ext(f Format) string {
	if f == Traefik {
		return "yaml"
	}
	return "conf"
}

// Generate renders one File per service plus a bundle file that concatenates
// all of them in a stable sort, for either format (spec §6).
func Generate(format Format, contexts []domain.SpawnedContext) []File {
	sorted := make([]domain.SpawnedContext, len(contexts))
	copy(sorted, contexts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Service.ID < sorted[j].Service.ID })

	files := make([]File, 0, len(sorted)+1)
	var bundle strings.Builder
	for _, ctx := range sorted {
		var body string
		switch format {
		case Traefik:
			body = renderTraefik(ctx)
		default:
			body = renderNginx(ctx)
		}
		name := fmt.Sprintf("db-yard.%s.%s.%s", safeID(ctx.Service.ID), pathutil.Fnv1a32Hex(ctx.Service.ID), ext(format))
		files = append(files, File{Name: name, Content: body})
		bundle.WriteString(body)
		bundle.WriteString("\n")
	}
	files = append(files, File{Name: "db-yard.generated." + ext(format), Content: bundle.String()})
	return files
}
