package api

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/garnizeh/ats/internal/storage"
)

// ResumeLocator maps a stored resume path to a file on disk.
type ResumeLocator interface {
	Path(stored string) (string, error)
}

type MediaHandler struct {
	resumes ResumeLocator
}

func NewMediaHandler(resumes ResumeLocator) *MediaHandler {
	return &MediaHandler{resumes: resumes}
}

// Resume serves /media/resumes/{name}.
func (h *MediaHandler) Resume(w http.ResponseWriter, r *http.Request) {
	full, err := h.resumes.Path(storage.Prefix + "/" + mux.Vars(r)["name"])
	if err != nil {
		notFound(w)
		return
	}
	if _, err := os.Stat(full); err != nil {
		notFound(w)
		return
	}
	w.Header().Set("Content-Disposition", `inline; filename="`+storage.OriginalName(storage.Prefix+"/"+mux.Vars(r)["name"])+`"`)
	http.ServeFile(w, r, full)
}
