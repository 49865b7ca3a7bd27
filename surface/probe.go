// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxProbes is the number of local reflection probes blended per frame.
const MaxProbes = 2

// ProbeShape selects the influence volume of a probe.
type ProbeShape uint8

const (
	// ProbeBox is an axis-aligned box centered on the probe position.
	ProbeBox ProbeShape = iota

	// ProbeSphere is a sphere centered on the probe position.
	ProbeSphere
)

// String returns the shape name.
func (s ProbeShape) String() string {
	switch s {
	case ProbeBox:
		return "box"
	case ProbeSphere:
		return "sphere"
	default:
		return fmt.Sprintf("ProbeShape(%d)", s)
	}
}

// Probe is a local reflection capture with an influence volume.
type Probe struct {
	Position mgl32.Vec3

	// Extent is the half size of a box probe.
	Extent mgl32.Vec3

	// Radius of a sphere probe.
	Radius float32

	Shape ProbeShape

	// Validity scales the probe's contribution; 0 disables it.
	Validity float32

	// Blend is the fraction of the volume, measured inward from its
	// boundary, over which the influence fades to zero. Zero selects 0.2.
	Blend float32

	Capture Environment
}

// Falloff returns the influence of the probe at a world position in [0, 1].
func (p Probe) Falloff(world mgl32.Vec3) float32 {
	var d float32
	rel := world.Sub(p.Position)
	switch p.Shape {
	case ProbeSphere:
		if p.Radius <= 0 {
			return 0
		}
		d = rel.Len() / p.Radius
	default:
		for i := range 3 {
			if p.Extent[i] <= 0 {
				return 0
			}
			a := rel[i] / p.Extent[i]
			if a < 0 {
				a = -a
			}
			d = max(d, a)
		}
	}

	blend := p.Blend
	if blend <= 0 {
		blend = 0.2
	}
	return clampf((1-d)/blend, 0, 1)
}

// Weight returns validity times falloff, or 0 for a probe without a capture.
func (p Probe) Weight(world mgl32.Vec3) float32 {
	if IsNilEnvironment(p.Capture) || p.Validity <= 0 {
		return 0
	}
	return clampf(p.Validity, 0, 1) * p.Falloff(world)
}

// ProbeContext holds zero, one or two local reflection probes.
type ProbeContext struct {
	Probes []Probe
}

// Validate reports an error when more than MaxProbes probes are supplied.
func (c ProbeContext) Validate() error {
	if len(c.Probes) > MaxProbes {
		return fmt.Errorf("surface: %d probes supplied, at most %d are blended", len(c.Probes), MaxProbes)
	}
	return nil
}

// Resolve blends the sky with the probes along dir as seen from world.
// Probes are layered over the sky in order, each weighted by its validity
// and falloff.
func (c ProbeContext) Resolve(sky Environment, world, dir mgl32.Vec3, roughness float32) mgl32.Vec3 {
	out := sky.Radiance(dir, roughness)
	for i, p := range c.Probes {
		if i >= MaxProbes {
			break
		}
		w := p.Weight(world)
		if w <= 0 {
			continue
		}
		out = lerp3(out, p.Capture.Radiance(dir, roughness), w)
	}
	return out
}
