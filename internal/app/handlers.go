package app

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/large-farva/fieldline-engine/internal/classify"
	"github.com/large-farva/fieldline-engine/internal/fieldtrace"
	"github.com/large-farva/fieldline-engine/internal/magfield"
	"github.com/large-farva/fieldline-engine/internal/orbitgen"
)

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// If the client asks for JSON, return component-level health checks.
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()

	resp := map[string]any{
		"name":           "fieldline-engine",
		"state":          a.state.Load().(string),
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"data_root":      cfg.Data.Root,
		"demo_enabled":   cfg.Demo.Enabled,
		"ws_clients":     a.wsHub.ClientCount(),
	}

	if cfg.Demo.Enabled {
		resp["mode"] = "demo"
	} else {
		resp["mode"] = "live"
		resp["model_addr"] = cfg.Model.Addr
		resp["external_field"] = a.model.Variant().String()
	}

	if du := diskUsage(cfg.Data.Root); du != nil {
		resp["disk"] = du
	}

	writeJSON(w, resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"version":    Version,
		"go_version": GoVersion,
		"built_at":   BuiltAt,
		"runtime":    runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	})
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.getConfig())
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

// pointRequest is the request body shared by /api/classify and /api/trace.
// Coordinates default to Earth radii; "units": "km" asks for kilometer
// input. Driver fields are pointers so an absent field is distinguishable
// from an explicit zero.
type pointRequest struct {
	X1       float64     `json:"x1"`
	X2       float64     `json:"x2"`
	X3       float64     `json:"x3"`
	Units    string      `json:"units"`
	DateTime string      `json:"datetime"`
	Drivers  driversJSON `json:"drivers"`
}

type driversJSON struct {
	Pdyn  *float64 `json:"pdyn"`
	Dst   *float64 `json:"dst"`
	ByIMF *float64 `json:"by_imf"`
	BzIMF *float64 `json:"bz_imf"`
}

var pointTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func (req *pointRequest) position() (magfield.Position, error) {
	if req.DateTime == "" {
		return magfield.Position{}, fmt.Errorf("datetime is required")
	}
	var ts time.Time
	var err error
	for _, layout := range pointTimeLayouts {
		if ts, err = time.Parse(layout, req.DateTime); err == nil {
			break
		}
	}
	if err != nil {
		return magfield.Position{}, fmt.Errorf("unparseable datetime %q", req.DateTime)
	}

	switch strings.ToLower(req.Units) {
	case "", "re":
		return magfield.Position{X1: req.X1, X2: req.X2, X3: req.X3, Time: ts}, nil
	case "km":
		return magfield.FromKilometers(req.X1, req.X2, req.X3, ts), nil
	default:
		return magfield.Position{}, fmt.Errorf("unknown units %q (want re or km)", req.Units)
	}
}

func (req *pointRequest) drivers() magfield.DriverParameters {
	d := magfield.DriverParameters{
		Pdyn:  math.NaN(),
		Dst:   math.NaN(),
		ByIMF: math.NaN(),
		BzIMF: math.NaN(),
	}
	if req.Drivers.Pdyn != nil {
		d.Pdyn = *req.Drivers.Pdyn
	}
	if req.Drivers.Dst != nil {
		d.Dst = *req.Drivers.Dst
	}
	if req.Drivers.ByIMF != nil {
		d.ByIMF = *req.Drivers.ByIMF
	}
	if req.Drivers.BzIMF != nil {
		d.BzIMF = *req.Drivers.BzIMF
	}
	return d
}

// decodePointRequest parses and validates the shared request body. A nil
// error means pos and drivers are ready to send to the model.
func (a *App) decodePointRequest(w http.ResponseWriter, r *http.Request) (magfield.Position, magfield.DriverParameters, bool) {
	var req pointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return magfield.Position{}, magfield.DriverParameters{}, false
	}

	pos, err := req.position()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return magfield.Position{}, magfield.DriverParameters{}, false
	}

	drivers := req.drivers()
	if err := a.model.Variant().Validate(drivers); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return magfield.Position{}, magfield.DriverParameters{}, false
	}
	return pos, drivers, true
}

func (a *App) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.classifier == nil {
		jsonError(w, "not available in demo mode", http.StatusConflict)
		return
	}

	pos, drivers, ok := a.decodePointRequest(w, r)
	if !ok {
		return
	}

	res := a.classifier.ClassifyPoint(r.Context(), pos, drivers)
	a.recordPoint(res)

	writeJSON(w, classificationJSON(pos, res))
}

func (a *App) handleTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.classifier == nil {
		jsonError(w, "not available in demo mode", http.StatusConflict)
		return
	}

	pos, drivers, ok := a.decodePointRequest(w, r)
	if !ok {
		return
	}

	tr, err := a.classifier.TraceFieldLine(r.Context(), pos, drivers)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	wantSVG := r.URL.Query().Get("format") == "svg" ||
		strings.Contains(r.Header.Get("Accept"), "image/svg+xml")
	if wantSVG {
		svg, err := fieldtrace.RenderSVG(tr)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
		return
	}

	writeJSON(w, map[string]any{
		"datetime":   pos.ISOTime(),
		"num_points": tr.NumPoints(),
		"l_shell":    tr.LShell,
		"b_min_nt":   tr.BMin,
		"points":     tr.Points,
	})
}

// ---------------------------------------------------------------------------
// Batch jobs
// ---------------------------------------------------------------------------

func (a *App) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.jobs == nil {
		jsonError(w, "not available in demo mode", http.StatusConflict)
		return
	}

	cfg := a.getConfig()

	var req struct {
		Input   string `json:"input"`
		Output  string `json:"output"`
		Workers int    `json:"workers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		jsonError(w, "input is required", http.StatusBadRequest)
		return
	}

	input, err := a.resolveDataPath(cfg.Data.Root, req.Input)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := os.Stat(input); err != nil {
		jsonError(w, "input file not found: "+req.Input, http.StatusNotFound)
		return
	}

	if req.Output == "" {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		req.Output = base + "_classified" + filepath.Ext(input)
	}
	output, err := a.resolveDataPath(cfg.Data.Root, req.Output)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Workers <= 0 {
		req.Workers = cfg.Batch.Workers
	}

	job, err := a.jobs.Submit(input, output, req.Workers)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]any{"ok": true, "job": job})
}

func (a *App) handleJobs(w http.ResponseWriter, r *http.Request) {
	if a.jobs == nil {
		jsonError(w, "not available in demo mode", http.StatusConflict)
		return
	}

	jobs := a.jobs.Jobs()

	if stateFilter := r.URL.Query().Get("state"); stateFilter != "" {
		var filtered []Job
		for _, j := range jobs {
			if string(j.State) == stateFilter {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}
	if jobs == nil {
		jobs = []Job{}
	}

	writeJSON(w, map[string]any{"jobs": jobs})
}

func (a *App) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.jobs == nil {
		jsonError(w, "not available in demo mode", http.StatusConflict)
		return
	}

	var req struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := a.jobs.Cancel(req.ID); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "message": fmt.Sprintf("cancel requested for job %d", req.ID)})
}

func (a *App) handleSummary(w http.ResponseWriter, _ *http.Request) {
	a.stats.mu.Lock()
	resp := map[string]any{
		"points_classified": a.stats.Points,
		"batch_rows":        a.stats.Rows,
		"batch_jobs":        a.stats.Jobs,
		"closed":            a.stats.Closed,
		"open":              a.stats.Open,
		"imf":               a.stats.IMF,
		"last_job_at":       a.stats.LastJobAt,
		"uptime_seconds":    int64(time.Since(a.startedAt).Seconds()),
	}
	a.stats.mu.Unlock()

	writeJSON(w, resp)
}

// ---------------------------------------------------------------------------
// Orbit generation
// ---------------------------------------------------------------------------

func (a *App) handleOrbitGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := a.getConfig()

	var req struct {
		Filename    string   `json:"filename"`
		Steps       int      `json:"steps"`
		StepSeconds int      `json:"step_seconds"`
		Start       string   `json:"start"`
		TLE         string   `json:"tle"`
		Pdyn        *float64 `json:"pdyn"`
		Dst         *float64 `json:"dst"`
		ByIMF       *float64 `json:"by_imf"`
		BzIMF       *float64 `json:"bz_imf"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Filename == "" {
		req.Filename = fmt.Sprintf("orbit_%s.txt", time.Now().UTC().Format("20060102T150405Z"))
	}

	path, err := a.resolveDataPath(cfg.Data.Root, req.Filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := orbitgen.Options{
		TLE:   req.TLE,
		Steps: cfg.Orbit.Steps,
		Step:  time.Duration(cfg.Orbit.StepSeconds) * time.Second,
		Drivers: magfield.DriverParameters{
			Pdyn:  cfg.Orbit.Pdyn,
			Dst:   cfg.Orbit.Dst,
			ByIMF: cfg.Orbit.ByIMF,
			BzIMF: cfg.Orbit.BzIMF,
		},
	}
	if req.Steps > 0 {
		opts.Steps = req.Steps
	}
	if req.StepSeconds > 0 {
		opts.Step = time.Duration(req.StepSeconds) * time.Second
	}
	if req.Start != "" {
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			jsonError(w, "unparseable start time: "+err.Error(), http.StatusBadRequest)
			return
		}
		opts.Start = start
	}
	if req.Pdyn != nil {
		opts.Drivers.Pdyn = *req.Pdyn
	}
	if req.Dst != nil {
		opts.Drivers.Dst = *req.Dst
	}
	if req.ByIMF != nil {
		opts.Drivers.ByIMF = *req.ByIMF
	}
	if req.BzIMF != nil {
		opts.Drivers.BzIMF = *req.BzIMF
	}

	rows, err := orbitgen.GenerateFile(path, opts)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	a.emit("fieldlined", map[string]any{
		"type":    "log",
		"level":   "info",
		"message": fmt.Sprintf("generated orbit file %s (%d rows)", filepath.Base(path), rows),
	})

	writeJSON(w, map[string]any{
		"ok":       true,
		"filename": filepath.Base(path),
		"path":     path,
		"rows":     rows,
	})
}

// ---------------------------------------------------------------------------
// Health detail
// ---------------------------------------------------------------------------

func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()

	checks := map[string]any{}
	allOK := true

	// Data directory must be writable; batch output lands there.
	tmpPath := filepath.Join(cfg.Data.Root, ".healthcheck")
	if err := os.WriteFile(tmpPath, []byte("ok"), 0o644); err != nil {
		checks["data_dir"] = map[string]any{"ok": false, "error": err.Error()}
		allOK = false
	} else {
		os.Remove(tmpPath)
		checks["data_dir"] = map[string]any{"ok": true, "path": cfg.Data.Root}
	}

	// Model server reachability (live mode only). A TCP dial is enough; the
	// client redials lazily so probing here does not disturb it.
	if !cfg.Demo.Enabled {
		if err := probeTCP(cfg.Model.Addr, 3*time.Second); err != nil {
			checks["model_server"] = map[string]any{"ok": false, "addr": cfg.Model.Addr, "error": err.Error()}
			allOK = false
		} else {
			checks["model_server"] = map[string]any{"ok": true, "addr": cfg.Model.Addr}
		}
	}

	// Config file readable.
	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			checks["config_file"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			checks["config_file"] = map[string]any{"ok": true, "path": a.configPath}
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"healthy": allOK,
		"checks":  checks,
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// resolveDataPath joins name onto root, rejecting traversal outside it.
// Absolute paths are accepted as-is so operators can point jobs at files
// elsewhere on disk.
func (a *App) resolveDataPath(root, name string) (string, error) {
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}
	if strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid filename %q", name)
	}
	return filepath.Join(root, name), nil
}

// classificationJSON shapes a classification result for the API.
func classificationJSON(pos magfield.Position, res classify.Result) map[string]any {
	hemis := make([]map[string]any, 0, len(res.Hemispheres))
	for _, hr := range res.Hemispheres {
		h := map[string]any{
			"hemisphere": hr.Hemisphere.String(),
			"found":      hr.Found,
		}
		if hr.Footpoint != nil {
			h["footpoint"] = hr.Footpoint
		}
		if hr.Err != nil {
			h["error"] = hr.Err.Error()
		}
		hemis = append(hemis, h)
	}

	return map[string]any{
		"classification": string(res.Classification),
		"code":           res.Classification.Code(),
		"found_count":    res.FoundCount,
		"datetime":       pos.ISOTime(),
		"position":       map[string]any{"x1": pos.X1, "x2": pos.X2, "x3": pos.X3},
		"hemispheres":    hemis,
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// probeTCP checks that addr accepts connections within the timeout.
func probeTCP(addr string, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}
