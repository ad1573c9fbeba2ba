// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gputest provides helpers for tests that need a device.
package gputest

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/gogpu/naga"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/evotri/backend/software"
	"github.com/gogpu/evotri/gpu"
)

// Software returns a manager over a software device and an arena on it.
// Both are released when the test ends.
func Software(t testing.TB) (*gpu.Manager, *gpu.Arena) {
	t.Helper()
	m := gpu.NewManager(software.New())
	a := gpu.NewArena(m)
	t.Cleanup(func() {
		a.Release()
		m.Close()
	})
	return m, a
}

// knownLimitations are naga errors for features it does not implement yet.
var knownLimitations = []string{
	"not yet implemented",
	"not supported",
	"lowering error",
}

// CompileWGSL compiles src with naga and checks the SPIR-V header. The test
// is skipped when naga reports a known limitation.
func CompileWGSL(t *testing.T, src string) {
	t.Helper()
	require.NotEmpty(t, src, "shader source is empty")

	spirv, err := naga.Compile(src)
	if err != nil {
		for _, s := range knownLimitations {
			if strings.Contains(err.Error(), s) {
				t.Skipf("Skipping: naga limitation: %v", err)
			}
		}
		t.Fatalf("failed to compile shader: %v", err)
	}
	require.GreaterOrEqual(t, len(spirv), 4, "SPIR-V too short")
	require.Equal(t, uint32(0x07230203), binary.LittleEndian.Uint32(spirv), "SPIR-V magic")
}
