package server

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/ldi/ganttform/embed/web_assets"
	"github.com/ldi/ganttform/internal/form"
	"github.com/ldi/ganttform/pkg/models"
	"github.com/sirupsen/logrus"
)

const PageTitle = "Zarządzanie zadaniami"

var page = template.Must(template.ParseFS(web_assets.Assets, "index.html"))

type Server struct {
	session *form.Session
	log     *logrus.Logger
	server  *http.Server
}

type pageData struct {
	Title string
	View  form.View
}

// ResultResponse is the body of GET /api/result.
type ResultResponse struct {
	Phase             string   `json:"phase"`
	CriticalPath      []string `json:"critical_path"`
	GanttChartURL     string   `json:"gantt_chart_url"`
	ResultUnavailable bool     `json:"result_unavailable"`
}

func NewServer(session *form.Session, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{session: session, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Form
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /tasks", s.handleAddTask)
	mux.HandleFunc("POST /submit", s.handleSubmit)

	// API endpoints
	mux.HandleFunc("GET /api/tasks", s.handleTasks)
	mux.HandleFunc("GET /api/result", s.handleResult)

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(web_assets.Assets))))

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d := models.TaskDraft{
		Name:       r.PostFormValue("name"),
		Duration:   r.PostFormValue("duration"),
		StartEvent: r.PostFormValue("start_event"),
		EndEvent:   r.PostFormValue("end_event"),
	}
	if _, err := s.session.AppendDraft(d); err != nil {
		s.renderPage(w, http.StatusUnprocessableEntity)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	// The round trip runs to the end even if the browser goes away, since the
	// service may already hold the list. Failures are logged by the session.
	_ = s.session.SubmitAll(context.WithoutCancel(r.Context()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.session.Tasks(), nil)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	v := s.session.Render()
	resp := ResultResponse{
		Phase:             v.Phase.String(),
		CriticalPath:      []string{},
		ResultUnavailable: v.ResultUnavailable,
	}
	if res := s.session.Result(); res != nil {
		if res.CriticalPath != nil {
			resp.CriticalPath = res.CriticalPath
		}
		resp.GanttChartURL = res.GanttChartURL
	}
	s.respond(w, resp, nil)
}

// renderPage draws the form. A pending notice is delivered once as an alert
// and then dismissed.
func (s *Server) renderPage(w http.ResponseWriter, status int) {
	v := s.session.Render()

	var buf bytes.Buffer
	if err := page.Execute(&buf, pageData{Title: PageTitle, View: v}); err != nil {
		s.log.WithError(err).Error("failed to render page")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if v.Notice != "" {
		s.session.DismissNotice()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
