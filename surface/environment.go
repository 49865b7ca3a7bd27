// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"math"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
)

// Environment is a prefiltered radiance capture. Radiance returns the
// incoming light along dir (unit length, world space) blurred according to
// roughness in [0, 1].
type Environment interface {
	Radiance(dir mgl32.Vec3, roughness float32) mgl32.Vec3
}

// IsNilEnvironment reports whether e is nil or wraps a nil pointer, map,
// slice, func or channel. Such an environment is treated as absent.
func IsNilEnvironment(e Environment) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// GradientSky is an analytic sky: a vertical gradient between ground,
// horizon and zenith colors with an optional sun lobe that widens with
// roughness.
type GradientSky struct {
	Zenith  mgl32.Vec3
	Horizon mgl32.Vec3
	Ground  mgl32.Vec3

	SunDirection mgl32.Vec3
	SunColor     mgl32.Vec3
	SunSharpness float32
}

// DefaultSky returns a daylight sky with a warm sun.
func DefaultSky() GradientSky {
	return GradientSky{
		Zenith:       mgl32.Vec3{0.25, 0.45, 0.9},
		Horizon:      mgl32.Vec3{0.8, 0.85, 0.95},
		Ground:       mgl32.Vec3{0.3, 0.27, 0.25},
		SunDirection: mgl32.Vec3{0.4, 0.8, 0.3}.Normalize(),
		SunColor:     mgl32.Vec3{8, 7, 5.5},
		SunSharpness: 512,
	}
}

// Radiance implements Environment.
func (s GradientSky) Radiance(dir mgl32.Vec3, roughness float32) mgl32.Vec3 {
	y := dir[1]
	var base mgl32.Vec3
	if y >= 0 {
		t := float32(math.Sqrt(float64(y)))
		base = lerp3(s.Horizon, s.Zenith, t)
	} else {
		t := clampf(-y*4, 0, 1)
		base = lerp3(s.Horizon, s.Ground, t)
	}

	if s.SunSharpness <= 0 || s.SunColor == (mgl32.Vec3{}) {
		return base
	}

	// Energy-preserving lobe: wider and dimmer as roughness grows.
	r := clampf(roughness, 0, 1)
	exponent := s.SunSharpness*(1-r)*(1-r) + 1
	cosTheta := max(dir.Dot(s.SunDirection), 0)
	lobe := float32(math.Pow(float64(cosTheta), float64(exponent)))
	norm := (exponent + 2) / (s.SunSharpness + 2)
	return base.Add(s.SunColor.Mul(lobe * norm))
}

// ConstantEnvironment returns the same radiance in every direction.
type ConstantEnvironment mgl32.Vec3

// Radiance implements Environment.
func (c ConstantEnvironment) Radiance(mgl32.Vec3, float32) mgl32.Vec3 {
	return mgl32.Vec3(c)
}

func lerp3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
