package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "satalloc API",
		Version:     "v1",
		Description: "Satellite observation time-slot allocation: greedy phases plus per-request conflict resolution",
		Endpoints: []endpointInfo{
			{"/api/v1/instances", []string{"GET", "POST"}, "Instance catalogue. POST stores a YAML or JSON instance document"},
			{"/api/v1/instances/{id}", []string{"GET", "DELETE"}, "Single instance with its document"},
			{"/api/v1/instances/{id}/solve", []string{"POST"}, "Run the allocation on a stored instance"},
			{"/api/v1/solve", []string{"POST"}, "Run the allocation on an inline instance document"},
			{"/api/v1/health", []string{"GET"}, "Server health, version and solver backends"},
		},
	})
}
