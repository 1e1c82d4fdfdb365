package httpapi

import (
	"errors"
	"net/http"

	"loadtracker.app/internal/audit"
	"loadtracker.app/internal/auth"
	"loadtracker.app/internal/inventory"
)

type checkInRequest struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Location    string `json:"location"`
	TruckRef    string `json:"truck_ref"`
}

type updateItemRequest struct {
	Description *string `json:"description"`
	Quantity    *int    `json:"quantity"`
	Location    *string `json:"location"`
	TruckRef    *string `json:"truck_ref"`
	Status      *string `json:"status"`
}

func (a *API) handleInventoryCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, auth.PermInventoryRead) {
			return
		}
		number, size, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		items, total, err := a.inventory.List(r.Context(), inventory.Page{Number: number, Size: size})
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		if items == nil {
			items = []inventory.Item{}
		}
		writeJSON(w, http.StatusOK, listResponse{Items: items, Total: total, Page: number, Limit: size})
	case http.MethodPost:
		if !a.ensurePermissions(w, r, auth.PermInventoryCreate) {
			return
		}
		principal, _ := auth.PrincipalFromContext(r.Context())
		var req checkInRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		item, err := a.inventory.CheckIn(r.Context(), inventory.CheckIn{
			SKU:         req.SKU,
			Description: req.Description,
			Quantity:    req.Quantity,
			Location:    req.Location,
			TruckRef:    req.TruckRef,
			CheckedInBy: principal.User.ID,
		})
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "inventory.check_in", map[string]any{
			"item_id": item.ID,
			"sku":     item.SKU,
		})
		w.Header().Set("Location", "/v1/inventory/"+item.ID)
		writeJSON(w, http.StatusCreated, item)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleInventoryResource(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/v1/inventory/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, auth.PermInventoryRead) {
			return
		}
		item, err := a.inventory.Get(r.Context(), id)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPut:
		if !a.ensurePermissions(w, r, auth.PermInventoryUpdate) {
			return
		}
		var req updateItemRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		item, err := a.inventory.Update(r.Context(), id, inventory.Update{
			Description: req.Description,
			Quantity:    req.Quantity,
			Location:    req.Location,
			TruckRef:    req.TruckRef,
			Status:      req.Status,
		})
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "inventory.update", map[string]any{"item_id": id})
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if !a.ensurePermissions(w, r, auth.PermInventoryDelete) {
			return
		}
		if err := a.inventory.Delete(r.Context(), id); err != nil {
			handleInventoryError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "inventory.delete", map[string]any{"item_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func handleInventoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, inventory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, inventory.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
