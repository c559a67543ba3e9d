package main

import (
	"sync/atomic"

	"workerd/internal/manager"
	"workerd/pkg/types"
)

// service adapts the manager and the scanned model list to httpapi.Service.
type service struct {
	*manager.Manager
	models []types.Model
	ready  atomic.Bool
}

func newService(m *manager.Manager, models []types.Model) *service {
	return &service{Manager: m, models: models}
}

func (s *service) ListModels() []types.Model { return append([]types.Model(nil), s.models...) }

func (s *service) Ready() bool { return s.ready.Load() }
