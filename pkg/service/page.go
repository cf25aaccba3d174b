package service

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

//go:embed ui/index.html.tmpl
var uiFS embed.FS

var indexTemplate = template.Must(template.ParseFS(uiFS, "ui/index.html.tmpl"))

type pageData struct {
	FlagKey       string
	InitialUserID string
	EvaluatePath  string
	LogsPath      string
}

// Index renders the form page with a freshly generated user id.
func (s Server) Index(w http.ResponseWriter, r *http.Request) {
	initial := r.URL.Query().Get("userId")
	if initial == "" {
		initial = "user-" + xid.New().String()
	}

	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, pageData{
		FlagKey:       s.flagKey,
		InitialUserID: initial,
		EvaluatePath:  EvaluatePath,
		LogsPath:      LogsPath,
	})
	if err != nil {
		log.Errorf("failed to render index page: %v", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		log.Errorf("failed to write index page: %v", err)
	}
}
