package httpd

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"sync"

	"github.com/dbyard/db-yard/internal/domain"
)

// proxyCache memoizes one *httputil.ReverseProxy per upstream base URL so a
// fresh Director/Transport isn't built on every request.
type proxyCache struct {
	mu    sync.Mutex
	byURL map[string]*httputil.ReverseProxy
}

func newProxyCache() *proxyCache {
	return &proxyCache{byURL: make(map[string]*httputil.ReverseProxy)}
}

func (c *proxyCache) get(base string) (*httputil.ReverseProxy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rp, ok := c.byURL[base]; ok {
		return rp, nil
	}
	target, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	rp := httputil.NewSingleHostReverseProxy(target)
	c.byURL[base] = rp
	return rp, nil
}

// proxy is the catch-all handler: it reverse-proxies to the service whose
// proxyEndpointPrefix is the longest match of the request path, injecting
// X-DB-Yard-* headers and rewriting Host to the upstream's (spec §6).
func (h *Handler) proxy(w http.ResponseWriter, r *http.Request) {
	states := h.liveStates()

	var best *domain.SpawnedState
	bestLen := -1
	for i := range states {
		st := &states[i]
		prefix := st.Context.Service.ProxyEndpointPrefix
		if prefix == "" || !pathHasPrefix(r.URL.Path, prefix) {
			continue
		}
		if len(prefix) > bestLen {
			bestLen = len(prefix)
			best = st
		}
	}
	if best == nil {
		h.writeError(w, http.StatusNotFound, "no service matches path "+r.URL.Path)
		return
	}
	if !best.Alive {
		h.writeError(w, http.StatusServiceUnavailable, "service "+best.Context.Service.ID+" is not running")
		return
	}

	rp, err := h.proxies.get(best.Context.Listen.BaseURL)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "bad upstream url: "+err.Error())
		return
	}

	target, err := url.Parse(best.Context.Listen.BaseURL)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "bad upstream url: "+err.Error())
		return
	}

	r.Host = target.Host
	r.Header.Set("X-DB-Yard-Id", best.Context.Service.ID)
	r.Header.Set("X-DB-Yard-Db", best.Context.Supplier.Location)
	r.Header.Set("X-DB-Yard-Kind", string(best.Context.Service.Kind))
	r.Header.Set("X-DB-Yard-Pid", strconv.Itoa(best.Context.Spawned.PID))
	r.Header.Set("X-DB-Yard-Upstream", best.Context.Listen.BaseURL)
	r.Header.Set("X-DB-Yard-ProxyPrefix", best.Context.Service.ProxyEndpointPrefix)

	rp.ServeHTTP(w, r)
}

// pathHasPrefix reports whether path is prefix or a sub-path of prefix,
// treating "/" as matching everything.
func pathHasPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if path == prefix {
		return true
	}
	return len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}
