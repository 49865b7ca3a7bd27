// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

const commonShader = "shaders/common.wgsl"

// Source returns the complete WGSL module of a stage: the shared prelude
// followed by the stage's entry point.
func Source(s Stage) (string, error) {
	if s < 0 || s >= StageCount {
		return "", fmt.Errorf("ssr gpu: unknown stage %d", int(s))
	}
	common, err := shaderFS.ReadFile(commonShader)
	if err != nil {
		return "", fmt.Errorf("ssr gpu: read %s: %w", commonShader, err)
	}
	name := "shaders/" + s.String() + ".wgsl"
	body, err := shaderFS.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("ssr gpu: read %s: %w", name, err)
	}
	return string(common) + "\n" + string(body), nil
}

// CompileStage translates a stage module to SPIR-V.
func CompileStage(s Stage) ([]byte, error) {
	src, err := Source(s)
	if err != nil {
		return nil, err
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("ssr gpu: compile %s: %w", s, err)
	}
	return spirv, nil
}
