package proxyconf

import (
	"fmt"
	"strings"

	"github.com/dbyard/db-yard/internal/domain"
)

// renderNginx emits a server { location <prefix> { proxy_pass <upstream>; ... } }
// block for one service (spec §6).
func renderNginx(ctx domain.SpawnedContext) string {
	prefix := ctx.Service.ProxyEndpointPrefix
	if prefix == "" {
		prefix = "/"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# db-yard: %s (%s)\n", ctx.Service.ID, ctx.Service.Kind)
	fmt.Fprintf(&b, "server {\n  location %s {\n", prefix)
	fmt.Fprintf(&b, "    proxy_pass %s;\n", ctx.Listen.BaseURL)
	b.WriteString("    proxy_http_version 1.1;\n")
	fmt.Fprintf(&b, "    proxy_set_header Host %s;\n", hostOf(ctx.Listen.BaseURL))
	fmt.Fprintf(&b, "    proxy_set_header X-DB-Yard-Id %s;\n", ctx.Service.ID)
	fmt.Fprintf(&b, "    proxy_set_header X-DB-Yard-Db %s;\n", ctx.Supplier.Location)
	fmt.Fprintf(&b, "    proxy_set_header X-DB-Yard-Kind %s;\n", ctx.Service.Kind)
	fmt.Fprintf(&b, "    proxy_set_header X-DB-Yard-Pid %d;\n", ctx.Spawned.PID)
	fmt.Fprintf(&b, "    proxy_set_header X-DB-Yard-Upstream %s;\n", ctx.Listen.BaseURL)
	fmt.Fprintf(&b, "    proxy_set_header X-DB-Yard-ProxyPrefix %s;\n", prefix)
	b.WriteString("  }\n}\n")
	return b.String()
}

func hostOf(base string) string {
	s := strings.TrimPrefix(base, "http://")
	s = strings.TrimPrefix(s, "https://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}
