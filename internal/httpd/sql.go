package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type unsafeSQLRequest struct {
	SQL string `json:"sql"`
}

// unsafeSQL serves POST /SQL/unsafe/{serviceId}.json: an ad-hoc query
// against the named service's backing database, run through sqlrunner
// exactly as the classifier and sidecar loader do (spec §6, §9). Gated
// behind the admin surface and intentionally unsafe — no statement
// allowlist, by design.
func (h *Handler) unsafeSQL(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["serviceId"]

	var req unsafeSQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SQL == "" {
		h.writeError(w, http.StatusBadRequest, "missing sql")
		return
	}

	var dbPath string
	for _, st := range h.liveStates() {
		if st.Context.Service.ID == serviceID {
			dbPath = st.Context.Supplier.Location
			break
		}
	}
	if dbPath == "" {
		h.writeError(w, http.StatusNotFound, "no known service "+serviceID)
		return
	}

	res := h.runner.RunQuery(r.Context(), dbPath, req.SQL)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"ok":       res.OK,
		"rows":     res.Rows,
		"text":     res.Text,
		"stderr":   res.Stderr,
		"exitCode": res.ExitCode,
	})
}
