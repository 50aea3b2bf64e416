package bridge

import (
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/spiredms/docbridge/docclient"
)

const documentumMediaType = docclient.MediaType

// Service implements the bridged repository operations on top of a session
// Registry. Type schema lookups are cached process-wide: repeating-attribute
// sets and per-type attribute names change rarely enough that one fetch per
// type name is sufficient for the life of the process.
type Service struct {
	reg    *Registry
	cfg    Config
	logger *slog.Logger

	// repeatingAttrs maps type name -> map[string]struct{} of attribute
	// names that are repeating on that type. Failed lookups cache an empty
	// set so a broken type does not hammer the backend on every update.
	repeatingAttrs sync.Map

	// ownAttrs maps type name -> map[string]struct{} of attribute names
	// declared directly on that type, used for one-level inheritance
	// tagging. Only successful lookups are cached.
	ownAttrs sync.Map

	sf singleflight.Group
}

func NewService(reg *Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reg: reg, cfg: reg.cfg, logger: logger}
}

// Registry exposes the session registry backing this service.
func (s *Service) Registry() *Registry { return s.reg }
