package api

import (
	"net/http"

	"github.com/seenimoa/bazaar/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config       *config.Config    `json:"config"`
	EnvOverrides []config.Override `json:"env_overrides"`
}

// handleGetConfig returns the running configuration and the BAZAAR_*
// variables that override it. The configuration is read-only at runtime.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	overrides := config.EnvOverrides()
	if overrides == nil {
		overrides = []config.Override{}
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:       s.cfg,
			EnvOverrides: overrides,
		},
	})
}
