package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agrowatch/geo"
	"agrowatch/models"

	"github.com/go-chi/chi/v5"
)

// handleCreateFarm validates the polygon and stores a new farm for the caller.
func (a *App) handleCreateFarm(w http.ResponseWriter, r *http.Request) {
	f, ok := a.decodeFarm(w, r)
	if !ok {
		return
	}
	f.OwnerID = mustUserID(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	out, err := a.store.CreateFarm(ctx, f)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.logger.Info("farm created", "farm_id", out.ID, "user_id", out.OwnerID)
	writeJSON(w, http.StatusCreated, withArea(out))
}

// handleListFarms returns the current user's farms, newest first.
func (a *App) handleListFarms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	farms, err := a.store.ListFarms(ctx, mustUserID(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]models.Farm, len(farms))
	for i, f := range farms {
		out[i] = withArea(f)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetFarm returns a single farm by id (owned by the user).
func (a *App) handleGetFarm(w http.ResponseWriter, r *http.Request) {
	f, ok := a.loadFarm(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, withArea(f))
}

// handleUpdateFarm replaces name, crop and area.
func (a *App) handleUpdateFarm(w http.ResponseWriter, r *http.Request) {
	id, ok := farmID(w, r)
	if !ok {
		return
	}
	f, ok := a.decodeFarm(w, r)
	if !ok {
		return
	}
	f.ID = id
	f.OwnerID = mustUserID(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	out, err := a.store.UpdateFarm(ctx, f)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withArea(out))
}

// handleDeleteFarm removes a farm by id.
func (a *App) handleDeleteFarm(w http.ResponseWriter, r *http.Request) {
	id, ok := farmID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.store.DeleteFarm(ctx, mustUserID(r), id); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- helpers ----

// decodeFarm parses and validates a farm body. Invalid input never reaches the store.
func (a *App) decodeFarm(w http.ResponseWriter, r *http.Request) (models.Farm, bool) {
	var req farmReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return models.Farm{}, false
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		a.writeError(w, &geo.ValidationError{Field: "name", Reason: "is required"})
		return models.Farm{}, false
	}
	if req.Area == nil {
		a.writeError(w, &geo.ValidationError{Field: "area", Reason: "is required"})
		return models.Farm{}, false
	}
	if err := geo.ValidatePolygon(*req.Area); err != nil {
		a.writeError(w, err)
		return models.Farm{}, false
	}
	return models.Farm{Name: name, Crop: strings.TrimSpace(req.Crop), Area: *req.Area}, true
}

// loadFarm resolves {id} to one of the caller's farms.
func (a *App) loadFarm(w http.ResponseWriter, r *http.Request) (models.Farm, bool) {
	id, ok := farmID(w, r)
	if !ok {
		return models.Farm{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	f, err := a.store.GetFarm(ctx, mustUserID(r), id)
	if err != nil {
		a.writeError(w, err)
		return models.Farm{}, false
	}
	return f, true
}

func farmID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "bad id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func withArea(f models.Farm) models.Farm {
	f.AreaHa = geo.AreaHectares(f.Area)
	return f
}
