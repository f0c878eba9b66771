package insurance

import (
	"time"

	"github.com/medhaus/clinicflow/internal/domain/providers"
	"github.com/medhaus/clinicflow/pkg/config"
)

// FromConfig selects an insurance adapter. Unknown adapter names fall
// back to the mock so the rest of the system stays exercisable.
func FromConfig(cfg *config.InsuranceConfig) providers.InsuranceProvider {
	switch cfg.Adapter {
	case "http":
		if cfg.BaseURL != "" {
			return NewHTTPAdapter(cfg.BaseURL, cfg.APIKey)
		}
	}
	return NewMockAdapter(400 * time.Millisecond)
}
