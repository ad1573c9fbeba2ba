// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package evotri approximates an image with a fixed number of colored
// triangles using a genetic algorithm whose rendering and scoring run on a
// GPU.
//
// # Overview
//
// A Pipeline holds a population of individuals. Each individual is a list
// of triangles and each triangle is three vertices of (x, y, r, g, b, a),
// x and y in [-1,1] and colors in [0,1]. One generation:
//
//  1. draws every individual into its own cell of a shared atlas texture
//  2. compares each cell with the reference image in a second pass and
//     reads back one row of difference pixels per 64 individuals
//  3. reduces those pixels to one fitness in [0,1] per individual
//  4. breeds the next population by elitism, tournament selection,
//     one-point crossover and banded mutation
//
// # Quick Start
//
//	var dev gpu.Device = software.New()
//	if hw, err := wgpu.Open(); err == nil {
//	    dev = hw
//	}
//	m := gpu.NewManager(dev)
//	defer m.Close()
//
//	p, err := evotri.New(m, reference, evotri.DefaultParams(), evotri.WithSeed(1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Release()
//
//	for range 1000 {
//	    fitness, _, err := p.Advance(ctx)
//	    ...
//	}
//
// # Devices
//
// The gpu package manages resources over a Device. Two devices ship with
// evotri: backend/wgpu runs on Vulkan, Metal or DX12 through gogpu/wgpu,
// and backend/software runs the same draws on the CPU.
//
// # Logging
//
// evotri is silent by default. Call [SetLogger] to enable logging for
// evotri and its sub-packages.
package evotri
