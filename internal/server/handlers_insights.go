package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/scribeflow/scribeflow/internal/template"
)

func (s *Server) handleListInsightTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.deps.InsightTemplates.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (s *Server) handleGetInsightTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.deps.InsightTemplates.Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleSaveInsightTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl template.InsightTemplate
	if err := decodeJSON(r, &tpl); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if id := r.PathValue("id"); id != "" {
		tpl.ID = id
	}

	if err := s.deps.InsightTemplates.Save(tpl); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleDeleteInsightTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.InsightTemplates.Delete(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": r.PathValue("id")})
}

func (s *Server) handleStartInsights(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TemplateID string `json:"template_id"`
		Source     string `json:"source"`
		Provider   string `json:"provider"`
		Model      string `json:"model"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if body.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "template_id is required")
		return
	}

	op, err := s.deps.Insights.Start(r.Context(), r.PathValue("id"), body.TemplateID, body.Source, body.Provider, body.Model)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, op)
}

func (s *Server) handleInsightSources(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Insights.Sources(job))
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}

	list, err := s.deps.Insights.List(job)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": list})
}

func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}

	ins, err := s.deps.Insights.Get(job, r.PathValue("template"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

func (s *Server) handleDownloadMindmap(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}

	ins, err := s.deps.Insights.Get(job, r.PathValue("template"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if ins.Mindmap == nil || ins.Mindmap.Content == "" {
		writeError(w, http.StatusNotFound, "no mindmap for this template")
		return
	}

	name := models.DownloadName("mindmap", job.Filename, "md")
	serveDownload(w, name, "text/markdown; charset=utf-8", []byte(ins.Mindmap.Content))
}

func (s *Server) handleDownloadInsights(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}

	ins, err := s.deps.Insights.Get(job, r.PathValue("template"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	name := models.DownloadName("insights", job.Filename, "md")
	serveDownload(w, name, "text/markdown; charset=utf-8", []byte(renderInsightsMarkdown(job, ins)))
}

// renderInsightsMarkdown flattens an insights document into the markdown
// served by the download endpoint.
func renderInsightsMarkdown(job *models.Job, ins *models.Insights) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s: %s\n\n", ins.Metadata.TemplateName, job.Filename)
	if ins.Description != "" {
		b.WriteString(ins.Description)
		b.WriteString("\n\n")
	}
	for _, section := range ins.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", section.Title, section.Content)
	}
	if ins.Mindmap != nil && ins.Mindmap.Content != "" {
		fmt.Fprintf(&b, "## Mindmap\n\n%s\n", ins.Mindmap.Content)
	}

	return b.String()
}
