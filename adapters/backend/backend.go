// Package backend selects the dashboard's data backend from configuration.
package backend

import (
	"log"

	"vizninja/adapters/backend/fake"
	"vizninja/adapters/backend/httpclient"
	"vizninja/internal/config"
	"vizninja/internal/errors"
	"vizninja/ports"
)

// New returns the backend named by cfg.Backend.Mode.
func New(cfg *config.Config) (ports.Backend, error) {
	switch cfg.Backend.Mode {
	case config.BackendHTTP:
		log.Printf("[Backend] Using HTTP backend at %s", cfg.Backend.URL)
		return httpclient.New(cfg.Backend.URL, cfg.Backend.Timeout), nil
	case config.BackendFake:
		log.Printf("[Backend] Using fake backend with fixture data")
		return fake.New(), nil
	}
	return nil, errors.ConfigInvalid("unknown backend mode " + cfg.Backend.Mode)
}
