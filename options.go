// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ssr

import (
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/ssr/internal/stage"
)

// Option configures a Pipeline during creation.
//
// Example:
//
//	p, err := ssr.New(
//	    ssr.WithRoughnessThreshold(0.3),
//	    ssr.WithSamplesPerQuad(1),
//	)
type Option func(*Config)

// Config holds the tuning of a Pipeline. Start from DefaultConfig.
type Config struct {
	// RoughnessThreshold is the roughness at and above which pixels get no
	// screen-space reflection.
	RoughnessThreshold float32

	// SamplesPerQuad is the number of rays traced per 2x2 quad: 1, 2 or 4.
	SamplesPerQuad int

	// VarianceGuided lets extra quad pixels trace when their temporal
	// variance exceeds VarianceThreshold.
	VarianceGuided    bool
	VarianceThreshold float32

	MostDetailedMip int
	MaxMarchSteps   int

	// Thickness is the accepted depth of a hit behind the depth buffer, as
	// a fraction of the surface's view distance.
	Thickness float32

	MaxSampleCount  float32
	SeedSampleCount float32

	// Disocclusion tests. DepthTolerance is relative to view distance;
	// NormalTolerance is the minimum normal dot product.
	DepthTolerance       float32
	NormalTolerance      float32
	RoughnessTolerance   float32
	DisocclusionVariance float32

	PrefilterRadius int

	// HistoryClampSigma clamps history to the tile mean plus or minus this
	// many deviations. Zero disables clamping.
	HistoryClampSigma float32

	Intensity float32

	// Workers is the CPU worker count; 0 means GOMAXPROCS.
	Workers int

	// Device runs the pipeline on a shared GPU device. It must also
	// provide HalDevice() and HalQueue().
	Device gpucontext.DeviceProvider
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		RoughnessThreshold:   0.2,
		SamplesPerQuad:       4,
		VarianceGuided:       true,
		VarianceThreshold:    0.002,
		MostDetailedMip:      0,
		MaxMarchSteps:        128,
		Thickness:            0.1,
		MaxSampleCount:       32,
		SeedSampleCount:      1,
		DepthTolerance:       0.1,
		NormalTolerance:      0.9,
		RoughnessTolerance:   0.1,
		DisocclusionVariance: 1,
		PrefilterRadius:      1,
		HistoryClampSigma:    3,
		Intensity:            1,
	}
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"roughness threshold", c.RoughnessThreshold > 0 && c.RoughnessThreshold <= 1},
		{"samples per quad", c.SamplesPerQuad == 1 || c.SamplesPerQuad == 2 || c.SamplesPerQuad == 4},
		{"variance threshold", c.VarianceThreshold >= 0},
		{"most detailed mip", c.MostDetailedMip >= 0},
		{"max march steps", c.MaxMarchSteps > 0},
		{"thickness", c.Thickness > 0},
		{"max sample count", c.MaxSampleCount >= 1},
		{"seed sample count", c.SeedSampleCount >= 1 && c.SeedSampleCount <= c.MaxSampleCount},
		{"depth tolerance", c.DepthTolerance > 0},
		{"normal tolerance", c.NormalTolerance >= -1 && c.NormalTolerance <= 1},
		{"roughness tolerance", c.RoughnessTolerance >= 0},
		{"disocclusion variance", c.DisocclusionVariance >= 0},
		{"prefilter radius", c.PrefilterRadius >= 0 && c.PrefilterRadius <= 4},
		{"history clamp", c.HistoryClampSigma >= 0},
		{"intensity", c.Intensity >= 0},
		{"workers", c.Workers >= 0},
	}
	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, ch.name)
		}
	}
	return nil
}

// params converts the configuration to the stage tuning.
func (c Config) params() stage.Params {
	return stage.Params{
		RoughnessThreshold:   c.RoughnessThreshold,
		SamplesPerQuad:       c.SamplesPerQuad,
		VarianceGuided:       c.VarianceGuided,
		VarianceThreshold:    c.VarianceThreshold,
		MostDetailedMip:      c.MostDetailedMip,
		MaxMarchSteps:        c.MaxMarchSteps,
		Thickness:            c.Thickness,
		MaxSampleCount:       c.MaxSampleCount,
		SeedSampleCount:      c.SeedSampleCount,
		DepthTolerance:       c.DepthTolerance,
		NormalTolerance:      c.NormalTolerance,
		RoughnessTolerance:   c.RoughnessTolerance,
		DisocclusionVariance: c.DisocclusionVariance,
		PrefilterRadius:      c.PrefilterRadius,
		HistoryClampSigma:    c.HistoryClampSigma,
		Intensity:            c.Intensity,
	}
}

// WithRoughnessThreshold sets the roughness cutoff for tracing.
func WithRoughnessThreshold(t float32) Option {
	return func(c *Config) { c.RoughnessThreshold = t }
}

// WithMaxSampleCount sets the temporal sample count saturation.
func WithMaxSampleCount(n float32) Option {
	return func(c *Config) { c.MaxSampleCount = n }
}

// WithSeedSampleCount sets the sample count a disoccluded pixel restarts from.
func WithSeedSampleCount(n float32) Option {
	return func(c *Config) { c.SeedSampleCount = n }
}

// WithDepthTolerance sets the relative depth difference that rejects history.
func WithDepthTolerance(t float32) Option {
	return func(c *Config) { c.DepthTolerance = t }
}

// WithNormalTolerance sets the minimum normal agreement for history.
func WithNormalTolerance(t float32) Option {
	return func(c *Config) { c.NormalTolerance = t }
}

// WithRoughnessTolerance sets the roughness difference that rejects history.
func WithRoughnessTolerance(t float32) Option {
	return func(c *Config) { c.RoughnessTolerance = t }
}

// WithDisocclusionVariance sets the variance assigned to disoccluded pixels.
func WithDisocclusionVariance(v float32) Option {
	return func(c *Config) { c.DisocclusionVariance = v }
}

// WithSamplesPerQuad sets the rays per 2x2 quad (1, 2 or 4).
func WithSamplesPerQuad(n int) Option {
	return func(c *Config) { c.SamplesPerQuad = n }
}

// WithVarianceGuidedTracing enables extra rays where the temporal variance
// exceeds threshold.
func WithVarianceGuidedTracing(enabled bool, threshold float32) Option {
	return func(c *Config) {
		c.VarianceGuided = enabled
		c.VarianceThreshold = threshold
	}
}

// WithMostDetailedMip sets the finest pyramid level the march descends to.
func WithMostDetailedMip(mip int) Option {
	return func(c *Config) { c.MostDetailedMip = mip }
}

// WithMaxMarchSteps bounds the pyramid traversal of one ray.
func WithMaxMarchSteps(n int) Option {
	return func(c *Config) { c.MaxMarchSteps = n }
}

// WithThickness sets the assumed thickness of the depth buffer.
func WithThickness(t float32) Option {
	return func(c *Config) { c.Thickness = t }
}

// WithPrefilterRadius sets the prefilter kernel radius; 0 disables it.
func WithPrefilterRadius(r int) Option {
	return func(c *Config) { c.PrefilterRadius = r }
}

// WithHistoryClamp sets the history clamp width in deviations; 0 disables it.
func WithHistoryClamp(sigma float32) Option {
	return func(c *Config) { c.HistoryClampSigma = sigma }
}

// WithIntensity scales the reflections added to the color target.
func WithIntensity(i float32) Option {
	return func(c *Config) { c.Intensity = i }
}

// WithWorkers sets the number of CPU workers.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithDevice runs the pipeline on a shared GPU device.
//
// The provider must also implement HalDevice() any and HalQueue() any
// returning the wgpu HAL device and queue. If it does not, or the compute
// pipelines cannot be created, the pipeline stays on the CPU.
func WithDevice(provider gpucontext.DeviceProvider) Option {
	return func(c *Config) { c.Device = provider }
}
