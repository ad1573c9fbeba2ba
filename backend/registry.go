// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/evotri/gpu"
)

// Backend name constants.
const (
	// BackendWGPU is the name of the GPU device over gogpu/wgpu.
	BackendWGPU = "wgpu"
	// BackendSoftware is the name of the CPU device.
	BackendSoftware = "software"
	// BackendAuto selects the first backend in priority order that opens.
	BackendAuto = "auto"
)

// ErrBackendNotAvailable is returned when a requested backend is not
// registered or none could be opened.
var ErrBackendNotAvailable = errors.New("backend: not available")

// Factory opens a new device.
type Factory func() (gpu.Device, error)

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for Default (first that opens wins).
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens a device by backend name. BackendAuto is the same as Default.
func Open(name string) (gpu.Device, error) {
	if name == BackendAuto {
		return Default()
	}
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrBackendNotAvailable, name, Available())
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return dev, nil
}

// Default opens the best available backend based on priority: wgpu, then
// software, then any other registered backend.
func Default() (gpu.Device, error) {
	registryMu.RLock()
	order := slices.Clone(backendPriority)
	for name := range backends {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	factories := make(map[string]Factory, len(backends))
	for name, f := range backends {
		factories[name] = f
	}
	registryMu.RUnlock()

	var errs []error
	for _, name := range order {
		factory, ok := factories[name]
		if !ok {
			continue
		}
		dev, err := factory()
		if err == nil {
			return dev, nil
		}
		gpu.Logger().Warn("backend: unavailable, trying next", "backend", name, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, errors.Join(errs...))
}
