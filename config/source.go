package config

import (
	"sync/atomic"

	"github.com/warp/leave-engine/timeoff"
)

// PolicySource serves the current policy and can be swapped at runtime,
// e.g. on SIGHUP. Services read it on every call, so a swap takes effect on
// the next operation.
type PolicySource struct {
	current atomic.Pointer[timeoff.Policy]
}

func NewPolicySource(p timeoff.Policy) *PolicySource {
	s := &PolicySource{}
	s.current.Store(&p)
	return s
}

func (s *PolicySource) Policy() timeoff.Policy {
	return *s.current.Load()
}

// Set replaces the policy after validating it; an invalid policy leaves the
// current one in force.
func (s *PolicySource) Set(p timeoff.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.current.Store(&p)
	return nil
}

// Reload re-reads path and swaps in its leave policy.
func (s *PolicySource) Reload(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := s.Set(cfg.Policy()); err != nil {
		return nil, err
	}
	return cfg, nil
}
