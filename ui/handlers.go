package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"vizninja/domain/dataset"
	"vizninja/domain/session"
	"vizninja/internal/errors"
	"vizninja/internal/notify"
	"vizninja/ports"
)

type strategyOption struct {
	Value    int
	Label    string
	Selected bool
}

type chartView struct {
	Name string
	Src  string
}

// pageData is shared by every page template
type pageData struct {
	Title         string
	Active        string
	Session       *session.Session
	Connectivity  string
	Notifications []notify.Event
	Error         string

	Strategies []strategyOption

	Preview *dataset.Preview
	Summary *dataset.Summary
	Columns []string
	Sampled bool

	Charts []chartView

	Target     string
	Regression *dataset.RegressionResult
}

func (a *App) newPage(ctx context.Context, title, active string) *pageData {
	p := &pageData{Title: title, Active: active, Connectivity: "unknown"}
	if a.monitor != nil {
		p.Connectivity = a.monitor.State().String()
	}
	if a.hub != nil {
		recent := a.hub.Recent()
		for i := len(recent) - 1; i >= 0 && len(p.Notifications) < 5; i-- {
			p.Notifications = append(p.Notifications, recent[i])
		}
	}
	sess, err := a.dash.Session(ctx)
	if err != nil {
		p.Error = err.Error()
	}
	p.Session = sess
	return p
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	p := a.newPage(r.Context(), "Upload & Preprocess", "home")
	p.Strategies = strategyOptions(dataset.DefaultStrategy)
	a.renderTemplate(w, http.StatusOK, "home.html", p)
}

func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		p := a.newPage(r.Context(), "Upload & Preprocess", "home")
		p.Strategies = strategyOptions(dataset.DefaultStrategy)
		status := http.StatusBadRequest
		p.Error = "Please choose a CSV file to upload"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
			p.Error = fmt.Sprintf("The file is larger than the %d MB upload limit", tooLarge.Limit>>20)
		}
		a.renderTemplate(w, status, "home.html", p)
		return
	}
	defer file.Close()

	if _, err := a.dash.Upload(r.Context(), header.Filename, header.Size, file); err != nil {
		p := a.newPage(r.Context(), "Upload & Preprocess", "home")
		p.Strategies = strategyOptions(dataset.DefaultStrategy)
		p.Error = errorText(err)
		a.renderTemplate(w, statusFor(err), "home.html", p)
		return
	}
	http.Redirect(w, r, "/explore", http.StatusSeeOther)
}

func (a *App) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	strategy := dataset.ParseStrategy(r.FormValue("strategy"))
	if _, err := a.dash.Preprocess(r.Context(), strategy); err != nil {
		p := a.newPage(r.Context(), "Upload & Preprocess", "home")
		p.Strategies = strategyOptions(strategy)
		p.Error = errorText(err)
		a.renderTemplate(w, statusFor(err), "home.html", p)
		return
	}
	http.Redirect(w, r, "/visualizations", http.StatusSeeOther)
}

func (a *App) handleExplore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := a.newPage(ctx, "Data Exploration", "explore")
	if !p.Session.Exists() {
		a.renderTemplate(w, http.StatusOK, "explore.html", p)
		return
	}

	preview, err := a.dash.Preview(ctx)
	if err != nil {
		p.Error = errorText(err)
	}
	p.Preview = preview

	summary, sampled, err := a.dash.Summary(ctx)
	if err != nil {
		p.Error = errorText(err)
	}
	p.Summary = summary
	p.Sampled = sampled
	if summary != nil {
		p.Columns = summaryColumns(p.Session, summary)
	}
	a.renderTemplate(w, http.StatusOK, "explore.html", p)
}

func (a *App) handleVisualizations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := a.newPage(ctx, "Visualizations", "visualizations")
	if p.Session.Exists() {
		for _, name := range p.Session.Visualizations.Names() {
			p.Charts = append(p.Charts, chartView{Name: name, Src: p.Session.Visualizations[name]})
		}
	}
	a.renderTemplate(w, http.StatusOK, "visualizations.html", p)
}

func (a *App) handleRegression(w http.ResponseWriter, r *http.Request) {
	p := a.newPage(r.Context(), "Regression Analysis", "regression")
	if p.Session != nil {
		p.Regression = p.Session.Regression
		if p.Regression != nil {
			p.Target = p.Regression.TargetVariable
		}
	}
	a.renderTemplate(w, http.StatusOK, "regression.html", p)
}

func (a *App) handleRunRegression(w http.ResponseWriter, r *http.Request) {
	target := r.FormValue("target")
	result, err := a.dash.Regress(r.Context(), target)
	p := a.newPage(r.Context(), "Regression Analysis", "regression")
	p.Target = target
	if err != nil {
		p.Error = errorText(err)
		a.renderTemplate(w, statusFor(err), "regression.html", p)
		return
	}
	p.Regression = result
	a.renderTemplate(w, http.StatusOK, "regression.html", p)
}

func (a *App) handleDownload(w http.ResponseWriter, r *http.Request) {
	kind := ports.DownloadKind(chi.URLParam(r, "kind"))
	dl, err := a.dash.Download(r.Context(), kind)
	if err != nil {
		http.Error(w, errorText(err), statusFor(err))
		return
	}
	defer dl.Body.Close()

	if dl.ContentType != "" {
		w.Header().Set("Content-Type", dl.ContentType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	if _, err := io.Copy(w, dl.Body); err != nil {
		log.Printf("[UI] Download of %s interrupted: %v", kind, err)
	}
}

func (a *App) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := a.dash.Clear(r.Context()); err != nil {
		http.Error(w, errorText(err), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleRefresh(w http.ResponseWriter, r *http.Request) {
	state := "unknown"
	if a.monitor != nil {
		state = a.monitor.Refresh(r.Context()).String()
	}
	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusOK, map[string]string{"state": state})
		return
	}
	back := r.Referer()
	if back == "" {
		back = "/"
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

type statusResponse struct {
	Connectivity    string   `json:"connectivity"`
	SessionID       string   `json:"session_id,omitempty"`
	Columns         []string `json:"columns,omitempty"`
	Visualizations  []string `json:"visualizations,omitempty"`
	RegressionReady bool     `json:"regression_ready"`
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	p := a.newPage(r.Context(), "", "")
	resp := statusResponse{Connectivity: p.Connectivity}
	if p.Session.Exists() {
		resp.SessionID = p.Session.ID.String()
		resp.Columns = p.Session.ColumnNames
		resp.Visualizations = p.Session.Visualizations.Names()
		resp.RegressionReady = p.Session.Regression != nil
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleNotifications(w http.ResponseWriter, r *http.Request) {
	events := []notify.Event{}
	if a.hub != nil {
		events = append(events, a.hub.Recent()...)
	}
	writeJSON(w, http.StatusOK, events)
}

// handleEvents streams notifications as server-sent events
func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok || a.hub == nil {
		http.Error(w, "streaming unsupported", http.StatusNotImplemented)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := a.hub.Subscribe()
	defer cancel()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("[UI] Failed to marshal event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func strategyOptions(selected dataset.Strategy) []strategyOption {
	var out []strategyOption
	for _, s := range dataset.Strategies() {
		out = append(out, strategyOption{Value: int(s), Label: s.Label(), Selected: s == selected})
	}
	return out
}

// summaryColumns orders columns as uploaded, then any the summary adds
func summaryColumns(sess *session.Session, s *dataset.Summary) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, c := range sess.ColumnNames {
		if _, ok := s.DataTypes[c]; ok {
			cols = append(cols, c)
			seen[c] = true
		}
	}
	var extra []string
	for c := range s.DataTypes {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeValidationError, errors.CodeNoSession:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeStaleSession:
		return http.StatusConflict
	case errors.CodeNetworkError:
		return http.StatusBadGateway
	case errors.CodeBackendRejected, errors.CodeInsufficientData:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func errorText(err error) string {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case errors.CodeNoSession:
			return "Please upload a dataset first"
		case errors.CodeNetworkError:
			return "The backend could not be reached. Please check if the server is running."
		}
		return appErr.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[UI] Failed to encode response: %v", err)
	}
}
