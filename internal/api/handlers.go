// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/model"
)

type feedsResponse struct {
	Feeds               int  `json:"feeds"`
	RecommendationFeeds int  `json:"recommendationFeeds"`
	Loaded              bool `json:"loaded"`
	ReloadRequired      bool `json:"reloadRequired"`
}

func (s *Server) handleFeeds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, feedsResponse{
		Feeds:               s.deps.Feeds.FeedCount(),
		RecommendationFeeds: s.deps.Feeds.RecommendationFeedCount(),
		Loaded:              s.deps.Feeds.Loaded(),
		ReloadRequired:      s.deps.Feeds.ReloadRequired(),
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	root, ok := s.loadRoot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, root)
}

type contentsResponse struct {
	Index    int              `json:"index"`
	Contents []*model.Content `json:"contents"`
}

func (s *Server) handleFeedContents(w http.ResponseWriter, r *http.Request) {
	root, ok := s.loadRoot(w, r)
	if !ok {
		return
	}
	index, _ := strconv.Atoi(chi.URLParam(r, "index"))
	contents := root.Flatten()
	if contents == nil {
		contents = []*model.Content{}
	}
	writeJSON(w, http.StatusOK, contentsResponse{Index: index, Contents: contents})
}

type recommendationsResponse struct {
	Index int      `json:"index"`
	IDs   []string `json:"ids"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	ids, err := s.deps.Feeds.LoadRecommendations(r.Context(), index)
	if err != nil {
		writeLoadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Index: index, IDs: ids})
}

type cacheClearResponse struct {
	Cleared int `json:"cleared"`
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		writeJSON(w, http.StatusOK, cacheClearResponse{})
		return
	}
	n := s.deps.Cache.Len()
	s.deps.Cache.Clear()
	s.deps.Feeds.SetReloadRequired(true)

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Int("entries", n).
		Str(log.FieldEvent, "api.cache_cleared").
		Msg("cache cleared on request")
	writeJSON(w, http.StatusOK, cacheClearResponse{Cleared: n})
}

func (s *Server) loadRoot(w http.ResponseWriter, r *http.Request) (*model.Container, bool) {
	index, ok := indexParam(w, r)
	if !ok {
		return nil, false
	}
	root, err := s.deps.Feeds.LoadRoot(r.Context(), index)
	if err != nil {
		writeLoadError(w, r, err)
		return nil, false
	}
	return root, true
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		writeBadRequest(w, "index must be a non-negative integer, got "+strconv.Quote(raw))
		return 0, false
	}
	return index, true
}
