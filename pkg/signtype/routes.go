package signtype

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type infoResponse struct {
	Message        string `json:"message"`
	Status         State  `json:"status"`
	Classifier     string `json:"classifier"`
	VocabularySize int    `json:"vocabulary_size"`
	Sessions       int    `json:"sessions"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	mux.HandleFunc(s.config.WSPath, s.handleWebsocket)
	return mux
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	kind := s.config.Classifier
	if s.opts.classifier != nil {
		kind = "custom"
	}
	writeJSON(w, http.StatusOK, infoResponse{
		Message:        "Sign language detection API",
		Status:         s.Status(),
		Classifier:     kind,
		VocabularySize: s.vocab.Size(),
		Sessions:       s.registry.Len(),
	})
}

// handleHealth reports healthy unless the server is shutting down or has
// crashed. A server that was never started is healthy so Handler can be
// mounted elsewhere.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	switch s.Status() {
	case StateStopping, StateCrashed:
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", ModelLoaded: true})
	default:
		writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", ModelLoaded: true})
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	t := s.currentTransport()
	if t == nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	t.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
