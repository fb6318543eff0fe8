// Package httpd is the admin and reverse-proxy HTTP surface (spec §6 Admin
// HTTP surface). Grounded on the teacher pack's gdamore-govisor/rest.Handler:
// a *mux.Router wrapped in a thin ServeHTTP, with route registration kept in
// one NewHandler constructor. Routing uses github.com/gorilla/mux; the
// catch-all reverse proxy is stdlib net/http/httputil.ReverseProxy.
package httpd

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/sqlrunner"
)

// StateLister reads the current session's spawned-state ledger.
type StateLister interface {
	ListSessionStates(home string) ([]domain.SpawnedState, []error)
}

// Handler serves the admin and proxy surface for one session.
type Handler struct {
	home    string
	states  StateLister
	runner  *sqlrunner.Runner
	log     domain.Logger
	r       *mux.Router
	nowMs   func() int64
	proxies *proxyCache
}

// New builds a Handler routed against home, the session directory.
func New(home string, states StateLister, runner *sqlrunner.Runner, log domain.Logger, nowMs func() int64) *Handler {
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	h := &Handler{
		home:    home,
		states:  states,
		runner:  runner,
		log:     log,
		nowMs:   nowMs,
		proxies: newProxyCache(),
	}
	// SkipClean keeps mux from answering "../" paths with a redirect, so
	// adminFile's own containment check sees (and rejects) them.
	r := mux.NewRouter().SkipClean(true)
	r.HandleFunc("/.admin", h.admin).Methods(http.MethodGet)
	r.HandleFunc("/.admin/index.html", h.adminIndex).Methods(http.MethodGet)
	r.PathPrefix("/.admin/files/").HandlerFunc(h.adminFile).Methods(http.MethodGet)
	r.HandleFunc("/SQL/unsafe/{serviceId}.json", h.unsafeSQL).Methods(http.MethodPost)
	r.PathPrefix("/").HandlerFunc(h.proxy)
	h.r = r
	return h
}

// ServeHTTP satisfies http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && h.log != nil {
		h.log.Error("admin: encode response failed", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// liveStates returns only the states that parsed without error, sorted by
// service id for a deterministic /.admin listing.
func (h *Handler) liveStates() []domain.SpawnedState {
	states, errs := h.states.ListSessionStates(h.home)
	for _, err := range errs {
		if h.log != nil {
			h.log.Error("admin: scan error", "err", err)
		}
	}
	out := make([]domain.SpawnedState, 0, len(states))
	for _, st := range states {
		if st.Err == nil {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Context.Service.ID < out[j].Context.Service.ID })
	return out
}

// admin serves GET /.admin: {ok, nowMs, sessionHome, count, items[]}.
func (h *Handler) admin(w http.ResponseWriter, r *http.Request) {
	states := h.liveStates()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"nowMs":       h.nowMs(),
		"sessionHome": h.home,
		"count":       len(states),
		"items":       states,
	})
}
