package proxyconf

import (
	"fmt"
	"strings"

	"github.com/dbyard/db-yard/internal/domain"
)

// renderTraefik emits a router+service+middleware triple in traefik's
// dynamic-config YAML shape for one service (spec §6).
func renderTraefik(ctx domain.SpawnedContext) string {
	id := safeID(ctx.Service.ID)
	prefix := ctx.Service.ProxyEndpointPrefix
	if prefix == "" {
		prefix = "/"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# db-yard: %s (%s)\n", ctx.Service.ID, ctx.Service.Kind)
	b.WriteString("http:\n")
	b.WriteString("  routers:\n")
	fmt.Fprintf(&b, "    db-yard-%s:\n", id)
	fmt.Fprintf(&b, "      rule: \"PathPrefix(`%s`)\"\n", prefix)
	fmt.Fprintf(&b, "      service: db-yard-%s\n", id)
	fmt.Fprintf(&b, "      middlewares: [\"db-yard-%s-headers\"]\n", id)
	b.WriteString("  services:\n")
	fmt.Fprintf(&b, "    db-yard-%s:\n", id)
	b.WriteString("      loadBalancer:\n")
	b.WriteString("        servers:\n")
	fmt.Fprintf(&b, "          - url: \"%s\"\n", ctx.Listen.BaseURL)
	b.WriteString("  middlewares:\n")
	fmt.Fprintf(&b, "    db-yard-%s-headers:\n", id)
	b.WriteString("      headers:\n")
	b.WriteString("        customRequestHeaders:\n")
	fmt.Fprintf(&b, "          X-DB-Yard-Id: \"%s\"\n", ctx.Service.ID)
	fmt.Fprintf(&b, "          X-DB-Yard-Db: \"%s\"\n", ctx.Supplier.Location)
	fmt.Fprintf(&b, "          X-DB-Yard-Kind: \"%s\"\n", ctx.Service.Kind)
	fmt.Fprintf(&b, "          X-DB-Yard-Pid: \"%d\"\n", ctx.Spawned.PID)
	fmt.Fprintf(&b, "          X-DB-Yard-Upstream: \"%s\"\n", ctx.Listen.BaseURL)
	fmt.Fprintf(&b, "          X-DB-Yard-ProxyPrefix: \"%s\"\n", prefix)
	return b.String()
}
