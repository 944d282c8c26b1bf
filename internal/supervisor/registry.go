package supervisor

import (
	"sync"

	"github.com/mattjoyce/kgbridge/internal/log"
)

// Registry tracks every live Supervisor owned by the daemon. Its one
// hard job is the shutdown sweep: no child process may survive the
// host's exit, so Shutdown force-kills everything still running.
type Registry struct {
	mu          sync.Mutex
	supervisors map[string]*Supervisor
}

func NewRegistry() *Registry {
	return &Registry{supervisors: make(map[string]*Supervisor)}
}

// Add registers a supervisor under a name, replacing any previous
// holder of that name.
func (r *Registry) Add(name string, s *Supervisor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.supervisors[name] = s
}

// Get returns the supervisor registered under name, or nil.
func (r *Registry) Get(name string) *Supervisor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.supervisors[name]
}

// Remove drops a supervisor from the registry without stopping it.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.supervisors, name)
}

// Shutdown force-kills every registered supervisor's child. Called from
// signal handling and deferred from daemon startup so it runs on every
// exit path.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	supervisors := make([]*Supervisor, 0, len(r.supervisors))
	for _, s := range r.supervisors {
		supervisors = append(supervisors, s)
	}
	r.mu.Unlock()

	logger := log.WithComponent("supervisor")
	logger.Info("shutdown sweep", "supervisors", len(supervisors))
	for _, s := range supervisors {
		s.Kill()
	}
}
