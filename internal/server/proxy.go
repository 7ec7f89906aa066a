package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Proxy endpoints forward one upstream request per call. No cache, no
// retries, no auth; upstream failure detail is logged but never leaked to
// the caller.

func (s *Server) handleBinPositionProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	start := time.Now()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.metrics.RecordProxyRequest("bin-position", strconv.Itoa(http.StatusBadRequest), time.Since(start))
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	query := url.Values{"user_id": {userID}}
	setOrDefault(query, r.URL.Query(), "page_num", "1")
	setOrDefault(query, r.URL.Query(), "page_size", "100")
	if pairID := r.URL.Query().Get("pair_id"); pairID != "" {
		query.Set("pair_id", pairID)
	}

	body, err := s.gateway.Forward(r.Context(), "/api/bin-position", query)
	if err != nil {
		s.logger.Printf("bin-position proxy: %v", err)
		s.metrics.RecordProxyRequest("bin-position", strconv.Itoa(http.StatusInternalServerError), time.Since(start))
		if s.metrics != nil {
			s.metrics.UpstreamErrors.WithLabelValues("bin-position").Inc()
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch bin positions")
		return
	}

	s.metrics.RecordProxyRequest("bin-position", strconv.Itoa(http.StatusOK), time.Since(start))
	relay(w, body)
}

func (s *Server) handlePoolPositionProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	start := time.Now()

	query := url.Values{}
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		query.Set("user_id", userID)
	}
	// The dashboard speaks pool_id; the upstream API calls it pair_id.
	if poolID := r.URL.Query().Get("pool_id"); poolID != "" {
		query.Set("pair_id", poolID)
	}
	setOrDefault(query, r.URL.Query(), "page_num", "1")
	setOrDefault(query, r.URL.Query(), "page_size", "100")

	body, err := s.gateway.Forward(r.Context(), "/api/pool-position", query)
	if err != nil {
		s.logger.Printf("pool-position proxy: %v", err)
		s.metrics.RecordProxyRequest("pool-position", strconv.Itoa(http.StatusInternalServerError), time.Since(start))
		if s.metrics != nil {
			s.metrics.UpstreamErrors.WithLabelValues("pool-position").Inc()
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch pool positions")
		return
	}

	s.metrics.RecordProxyRequest("pool-position", strconv.Itoa(http.StatusOK), time.Since(start))
	relay(w, body)
}

// setOrDefault copies key from src, falling back to def when absent.
func setOrDefault(dst url.Values, src url.Values, key, def string) {
	v := src.Get(key)
	if v == "" {
		v = def
	}
	dst.Set(key, v)
}

// relay writes the upstream body verbatim.
func relay(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
