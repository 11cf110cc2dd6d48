package baseapi

import "github.com/mediatechnologycenter/api-commons/pkg/core/readiness"

// Status is the body of /api/status.
type Status struct {
	Readiness    bool     `json:"readiness"`
	GPUSupported bool     `json:"gpu_supported"`
	GPUEnabled   bool     `json:"gpu_enabled"`
	Tags         []string `json:"tags"`

	// Components is filled when the api runs inside an fx application and
	// lists the startup components tracked there.
	Components []readiness.ComponentStatus `json:"components,omitempty"`
}
