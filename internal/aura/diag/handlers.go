package diag

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/aura/internal/aura/render"
	"github.com/banshee-data/aura/internal/monitoring"
)

// Source yields the most recent frame, retained for the caller, or nil if
// no frame has been produced yet.
type Source interface {
	Latest() *render.PointCloud
}

// Handlers serves the debug views of a Source.
type Handlers struct {
	src Source
}

// NewHandlers returns handlers reading frames from src.
func NewHandlers(src Source) *Handlers {
	return &Handlers{src: src}
}

// Register mounts the debug endpoints on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/debug/aura/radial.png", h.handleRadial)
	mux.HandleFunc("/debug/aura/scatter", h.handleScatter)
	mux.HandleFunc("/debug/aura/summary", h.handleSummary)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("[Aura] failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handlers) latest(w http.ResponseWriter, r *http.Request) *render.PointCloud {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil
	}
	pc := h.src.Latest()
	if pc == nil || pc.PointCount == 0 {
		if pc != nil {
			pc.Release()
		}
		writeJSONError(w, http.StatusNotFound, "no frame available")
		return nil
	}
	return pc
}

// queryInches reads a positive size in inches, falling back to def.
func queryInches(r *http.Request, key string, def vg.Length) vg.Length {
	if s := r.URL.Query().Get(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 && v <= 40 {
			return vg.Length(v) * vg.Inch
		}
	}
	return def
}

func (h *Handlers) handleRadial(w http.ResponseWriter, r *http.Request) {
	pc := h.latest(w, r)
	if pc == nil {
		return
	}
	defer pc.Release()

	var buf bytes.Buffer
	width := queryInches(r, "w", 8*vg.Inch)
	height := queryInches(r, "h", 5*vg.Inch)
	if err := WriteRadialHistogram(&buf, pc, width, height); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) handleScatter(w http.ResponseWriter, r *http.Request) {
	pc := h.latest(w, r)
	if pc == nil {
		return
	}
	defer pc.Release()

	var buf bytes.Buffer
	if err := WriteScatterPage(&buf, pc, "Aura point cloud"); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) handleSummary(w http.ResponseWriter, r *http.Request) {
	pc := h.latest(w, r)
	if pc == nil {
		return
	}
	defer pc.Release()
	writeJSON(w, http.StatusOK, RadialSummary(pc))
}
