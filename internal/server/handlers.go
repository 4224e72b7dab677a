package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hammamikhairi/guidedcook/internal/api"
	"github.com/hammamikhairi/guidedcook/internal/domain"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, api.ErrorResponse{Error: msg})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}

// cookedAt returns the request time, or now when the client sent none.
func cookedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.List(r.Context())
	if q := r.URL.Query().Get("q"); q != "" {
		list, err = s.catalog.Search(r.Context(), q)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// getRecipe returns the catalog snapshot with the caller's cooked state
// and the recipe's photos filled in.
func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	snap, err := s.catalog.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "recipe not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if rec := s.store.Lookup(ctx, userFrom(ctx), id); rec != nil {
		snap.AlreadySaved = true
		snap.CookedAt = rec.CookedAt
	}
	snap.Photos = s.store.Photos(ctx, id)
	writeJSON(w, http.StatusOK, snap)
}

// requireRecipe writes 404 and returns false when the id is unknown.
func (s *Server) requireRecipe(w http.ResponseWriter, r *http.Request, id string) (*domain.RecipeSnapshot, bool) {
	snap, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "recipe not found")
		return nil, false
	}
	return snap, true
}

func (s *Server) markComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	if _, ok := s.requireRecipe(w, r, id); !ok {
		return
	}
	var req api.CookedRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.store.MarkComplete(ctx, userFrom(ctx), id, cookedAt(req.CookedAt)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) savePublic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	snap, ok := s.requireRecipe(w, r, id)
	if !ok {
		return
	}
	if !snap.IsPublic {
		writeError(w, http.StatusBadRequest, "recipe is not public")
		return
	}
	var req api.CookedRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.store.Save(ctx, userFrom(ctx), id, nil, cookedAt(req.CookedAt)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) saveRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req api.SaveRequest
	if err := decode(r, &req); err != nil || req.RecipeID == "" {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if _, ok := s.requireRecipe(w, r, req.RecipeID); !ok {
		return
	}
	if err := s.store.Save(ctx, userFrom(ctx), req.RecipeID, req.Photo, cookedAt(req.CookedAt)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) listSaved(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	saved, err := s.store.Saved(ctx, userFrom(ctx))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.SavedRecipesResponse{SavedRecipes: saved})
}

func (s *Server) getRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	if _, ok := s.requireRecipe(w, r, id); !ok {
		return
	}
	rating, err := s.store.Rating(ctx, userFrom(ctx), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.RatingResponse{Rating: rating})
}

func (s *Server) postRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	if _, ok := s.requireRecipe(w, r, id); !ok {
		return
	}
	var req api.RatingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	err := s.store.Rate(ctx, userFrom(ctx), id, req.Rating, req.Comment)
	if errors.Is(err, domain.ErrInvalidRating) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	if _, ok := s.requireRecipe(w, r, id); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile(api.PhotoField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing photo field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading photo")
		return
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		writeError(w, http.StatusBadRequest, "not an image")
		return
	}

	photo, err := s.store.AddPhoto(ctx, id, data)
	if le, limited := domain.IsLimitExceeded(err); limited {
		writeJSON(w, http.StatusConflict, api.ErrorResponse{
			Error:   api.ErrPhotoLimitExceeded,
			Current: le.Current,
			Max:     le.Max,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, domain.PhotoMetadata{ID: photo.ID, URL: photo.URL})
}

func (s *Server) photoCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	if _, ok := s.requireRecipe(w, r, id); !ok {
		return
	}
	writeJSON(w, http.StatusOK, api.CountResponse{Count: s.store.PhotoCount(ctx, id)})
}

func (s *Server) getPhoto(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.PhotoData(r.Context(), mux.Vars(r)["photoID"])
	if err != nil {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}
