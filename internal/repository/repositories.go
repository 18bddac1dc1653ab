package repository

import (
	"github.com/deppfellow/covid-api/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Users        UserStore
	Observations ObservationStore
}

// NewRepositories wires postgres repositories when the server holds a pool,
// and a shared in-memory store otherwise.
func NewRepositories(s *server.Server) *Repositories {
	if s.DB == nil {
		mem := NewMemory()
		return &Repositories{
			Users:        mem,
			Observations: mem,
		}
	}

	return &Repositories{
		Users:        NewUserRepository(s.DB.Pool),
		Observations: NewObservationRepository(s.DB.Pool),
	}
}
