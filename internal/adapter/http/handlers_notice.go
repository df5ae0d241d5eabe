package http

import (
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain/notice"
)

// CreateNotice handles POST /api/v1/notice
func (h *Handlers) CreateNotice(w http.ResponseWriter, r *http.Request) {
	handleCreate("notice", h.Notices.Create)(w, r)
}

// ListNotices handles GET /api/v1/notice
func (h *Handlers) ListNotices(w http.ResponseWriter, r *http.Request) {
	handlePage("notices", notice.PageSize, h.Notices.List)(w, r)
}

// ArchiveNotice handles DELETE /api/v1/notice/{noticeId}
func (h *Handlers) ArchiveNotice(w http.ResponseWriter, r *http.Request) {
	if err := h.Notices.Archive(r.Context(), actor(r), urlParam(r, "noticeId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Notice deleted"})
}
