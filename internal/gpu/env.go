// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/surface"
)

// Environment table dimensions. Level l holds roughness l/(EnvLevels-1).
const (
	EnvLevels = 4
	EnvWidth  = 64
	EnvHeight = 32

	envTexels = EnvLevels * EnvWidth * EnvHeight

	// envTables is the sky plus one table per blended probe.
	envTables = 1 + surface.MaxProbes
)

// BakeEnvironment samples env into a lat-long table. A nil env bakes black.
func BakeEnvironment(env surface.Environment) []mgl32.Vec3 {
	table := make([]mgl32.Vec3, envTexels)
	if surface.IsNilEnvironment(env) {
		return table
	}
	for l := range EnvLevels {
		rough := float32(l) / float32(EnvLevels-1)
		for y := range EnvHeight {
			for x := range EnvWidth {
				table[(l*EnvHeight+y)*EnvWidth+x] = env.Radiance(texelDirection(x, y), rough)
			}
		}
	}
	return table
}

// texelDirection is the direction through the center of table texel (x, y).
// u runs around the vertical axis starting at -Z, v from zenith to nadir.
func texelDirection(x, y int) mgl32.Vec3 {
	u := (float64(x) + 0.5) / EnvWidth
	v := (float64(y) + 0.5) / EnvHeight
	phi := (u - 0.5) * 2 * math.Pi
	theta := v * math.Pi
	st := math.Sin(theta)
	return mgl32.Vec3{
		float32(st * math.Sin(phi)),
		float32(math.Cos(theta)),
		float32(-st * math.Cos(phi)),
	}
}

// lookupEnvironment is the shader's table lookup: nearest texel, linear
// between roughness levels.
func lookupEnvironment(table []mgl32.Vec3, dir mgl32.Vec3, rough float32) mgl32.Vec3 {
	u := math.Atan2(float64(dir[0]), float64(-dir[2]))/(2*math.Pi) + 0.5
	v := math.Acos(float64(mgl32.Clamp(dir[1], -1, 1))) / math.Pi
	x := min(int(max(u, 0)*EnvWidth), EnvWidth-1)
	y := min(int(max(v, 0)*EnvHeight), EnvHeight-1)

	lf := mgl32.Clamp(rough, 0, 1) * (EnvLevels - 1)
	l0 := int(lf)
	l1 := min(l0+1, EnvLevels-1)
	a := table[(l0*EnvHeight+y)*EnvWidth+x]
	b := table[(l1*EnvHeight+y)*EnvWidth+x]
	return a.Add(b.Sub(a).Mul(lf - float32(l0)))
}
