// Package web implements the HTML driving adapter using templ components.
package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ericfisherdev/credreview/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/credreview/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/credreview/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/credreview/internal/csvcodec"
)

const (
	pageTitle = "credreview"

	// maxPreviewBody bounds the pasted export.
	maxPreviewBody = 8 << 20
)

// Handler is the web driving adapter. It parses pasted exports in memory to
// preview them and never persists or logs their contents.
type Handler struct {
	helpHTML  string
	partLimit int
	logger    *slog.Logger
}

// NewHandler creates a Handler. partLimit is the export part size used to
// predict how many files an export would produce.
func NewHandler(partLimit int, logger *slog.Logger) *Handler {
	if partLimit <= 0 {
		partLimit = csvcodec.DefaultPartLimit
	}
	return &Handler{
		helpHTML:  RenderMarkdown(helpMarkdown),
		partLimit: partLimit,
		logger:    logger,
	}
}

// Index renders the review page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, nil)
}

// Preview parses the pasted export and renders its masked summary.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPreviewBody)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusRequestEntityTooLarge, &vm.PreviewViewModel{Error: "The pasted export is too large."})
		return
	}

	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	raw := r.PostFormValue("csv")
	if strings.TrimSpace(raw) == "" {
		h.render(w, r, http.StatusUnprocessableEntity, &vm.PreviewViewModel{Error: "Paste an export to preview it."})
		return
	}

	records, dialect := csvcodec.Import(raw)
	if len(records) == 0 {
		h.render(w, r, http.StatusUnprocessableEntity, &vm.PreviewViewModel{Error: "No records found in the pasted export."})
		return
	}

	preview := toPreviewViewModel(records, dialect, h.partLimit)
	h.logger.Info("export previewed", "records", preview.RecordCount, "columns", preview.ColumnCount)
	h.render(w, r, http.StatusOK, &preview)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, preview *vm.PreviewViewModel) {
	page := vm.PageViewModel{
		Title:     pageTitle,
		CSRFToken: csrfToken(w, r),
		HelpHTML:  h.helpHTML,
		Preview:   preview,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Layout(pageTitle, pages.Review(page)).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}
