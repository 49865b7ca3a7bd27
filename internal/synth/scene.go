// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package synth rasterizes small analytic scenes into the G-buffer, color,
// ambient occlusion and depth pyramid inputs of the reflection pipeline.
// It stands in for a renderer in tests and in the demo command.
package synth

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/surface"
)

// Material describes the surface of a primitive.
type Material struct {
	BaseColor mgl32.Vec3
	Roughness float32
	Metalness float32
	Emission  mgl32.Vec3
}

// Plane is an infinite plane through Point.
type Plane struct {
	Point  mgl32.Vec3
	Normal mgl32.Vec3
	Material
}

// Sphere is a sphere primitive.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
	Material
}

// Scene is a set of primitives lit by a sky.
type Scene struct {
	Planes  []Plane
	Spheres []Sphere
	Sky     surface.GradientSky
}

// DefaultScene returns a glossy floor under an open sky with three spheres
// of increasing roughness.
func DefaultScene() *Scene {
	return &Scene{
		Planes: []Plane{
			{
				Point: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 1, 0},
				Material: Material{BaseColor: mgl32.Vec3{0.6, 0.6, 0.65}, Roughness: 0.05, Metalness: 0.9},
			},
		},
		Spheres: []Sphere{
			{Center: mgl32.Vec3{-2, 1, -2}, Radius: 1, Material: Material{BaseColor: mgl32.Vec3{0.9, 0.8, 0.2}, Roughness: 0.1, Metalness: 1}},
			{Center: mgl32.Vec3{0.5, 0.75, -1}, Radius: 0.75, Material: Material{BaseColor: mgl32.Vec3{0.2, 0.5, 0.9}, Roughness: 0.4}},
			{Center: mgl32.Vec3{2.5, 1.2, -3}, Radius: 1.2, Material: Material{BaseColor: mgl32.Vec3{0.9, 0.9, 0.9}, Roughness: 0.15, Emission: mgl32.Vec3{0.5, 0.1, 0.6}}},
		},
		Sky: surface.DefaultSky(),
	}
}

// hit is the closest intersection along a ray.
type hit struct {
	t        float32
	position mgl32.Vec3
	normal   mgl32.Vec3
	material Material
}

// Trace returns the closest intersection of the ray with the scene.
func (s *Scene) Trace(origin, dir mgl32.Vec3, maxT float32) (hit, bool) {
	best := hit{t: maxT}
	found := false

	for _, p := range s.Planes {
		den := dir.Dot(p.Normal)
		if den >= -1e-6 {
			continue
		}
		t := p.Point.Sub(origin).Dot(p.Normal) / den
		if t > 1e-4 && t < best.t {
			best = hit{t: t, normal: p.Normal, material: p.Material}
			found = true
		}
	}

	for _, sp := range s.Spheres {
		oc := origin.Sub(sp.Center)
		b := oc.Dot(dir)
		c := oc.Dot(oc) - sp.Radius*sp.Radius
		disc := b*b - c
		if disc < 0 {
			continue
		}
		t := -b - float32(math.Sqrt(float64(disc)))
		if t > 1e-4 && t < best.t {
			pos := origin.Add(dir.Mul(t))
			best = hit{t: t, normal: pos.Sub(sp.Center).Normalize(), material: sp.Material}
			found = true
		}
	}

	if found {
		best.position = origin.Add(dir.Mul(best.t))
	}
	return best, found
}

// occlusion approximates ambient occlusion at a point from the spheres.
func (s *Scene) occlusion(pos, normal mgl32.Vec3) float32 {
	ao := float32(1)
	for _, sp := range s.Spheres {
		toSphere := sp.Center.Sub(pos)
		d := toSphere.Len()
		if d <= sp.Radius {
			continue
		}
		cos := max(normal.Dot(toSphere.Mul(1/d)), 0)
		ao -= cos * (sp.Radius * sp.Radius) / (d * d)
	}
	return mgl32.Clamp(ao, 0, 1)
}

// shade returns a simple diffuse-plus-ambient color for a hit.
func (s *Scene) shade(h hit) mgl32.Vec3 {
	m := h.material
	sun := s.Sky.SunDirection
	lit := max(h.normal.Dot(sun), 0)
	if lit > 0 {
		if _, blocked := s.Trace(h.position.Add(h.normal.Mul(1e-3)), sun, 1e4); blocked {
			lit = 0
		}
	}
	ambient := s.Sky.Radiance(h.normal, 1)
	diffuse := m.BaseColor.Mul(1 - m.Metalness)
	light := ambient.Mul(0.35 * s.occlusion(h.position, h.normal)).Add(s.Sky.SunColor.Mul(lit * 0.08))
	return mgl32.Vec3{diffuse[0] * light[0], diffuse[1] * light[1], diffuse[2] * light[2]}.Add(m.Emission)
}
