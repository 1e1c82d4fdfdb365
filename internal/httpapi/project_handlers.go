package httpapi

import (
	"errors"
	"net/http"
	"time"

	"loadtracker.app/internal/audit"
	"loadtracker.app/internal/auth"
	"loadtracker.app/internal/project"
)

type createProjectRequest struct {
	Name        string     `json:"name"`
	Client      string     `json:"client"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

type updateProjectRequest struct {
	Name        *string    `json:"name"`
	Client      *string    `json:"client"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

func (a *API) handleProjectsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, auth.PermProjectsRead) {
			return
		}
		number, size, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		projects, total, err := a.projects.List(r.Context(), project.Page{Number: number, Size: size})
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		if projects == nil {
			projects = []project.Project{}
		}
		writeJSON(w, http.StatusOK, listResponse{Items: projects, Total: total, Page: number, Limit: size})
	case http.MethodPost:
		if !a.ensurePermissions(w, r, auth.PermProjectsCreate) {
			return
		}
		principal, _ := auth.PrincipalFromContext(r.Context())
		var req createProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		proj, err := a.projects.Create(r.Context(), project.New{
			Name:        req.Name,
			Client:      req.Client,
			Description: req.Description,
			Status:      req.Status,
			StartDate:   req.StartDate,
			DueDate:     req.DueDate,
			CreatedBy:   principal.User.ID,
		})
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "project.create", map[string]any{
			"project_id": proj.ID,
			"name":       proj.Name,
		})
		w.Header().Set("Location", "/v1/projects/"+proj.ID)
		writeJSON(w, http.StatusCreated, proj)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProjectResource(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/v1/projects/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, auth.PermProjectsRead) {
			return
		}
		proj, err := a.projects.Get(r.Context(), id)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, proj)
	case http.MethodPut:
		if !a.ensurePermissions(w, r, auth.PermProjectsUpdate) {
			return
		}
		var req updateProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		proj, err := a.projects.Update(r.Context(), id, project.Update{
			Name:        req.Name,
			Client:      req.Client,
			Description: req.Description,
			Status:      req.Status,
			StartDate:   req.StartDate,
			DueDate:     req.DueDate,
		})
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "project.update", map[string]any{"project_id": id})
		writeJSON(w, http.StatusOK, proj)
	case http.MethodDelete:
		if !a.ensurePermissions(w, r, auth.PermProjectsDelete) {
			return
		}
		if err := a.projects.Delete(r.Context(), id); err != nil {
			handleProjectError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "project.delete", map[string]any{"project_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func handleProjectError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, project.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, project.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, project.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
