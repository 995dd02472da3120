package store

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates a Store based on the driver name.
//
// Supported drivers:
//
//	"mongo"  - MongoDB (default)
//	"memory" - In-memory (ephemeral, for testing and local dev)
func New(driver string, cfg MongoConfig, log *zap.Logger) (Store, error) {
	switch driver {
	case "mongo", "":
		return NewMongoStore(cfg, log)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %q (supported: mongo, memory)", driver)
	}
}
