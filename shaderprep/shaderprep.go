// Package shaderprep expands #include directives in GLSL source files
// ahead of compilation. It is the "shader text preprocessing" external
// collaborator: actual GLSL-to-SPIR-V compilation is left to the caller
// (shaderc, glslangValidator, or any compiler that accepts the expanded
// source and returns SPIR-V words for ComputePipelineInfo.ShaderCode /
// RasterPipelineInfo.{Vertex,Fragment}ShaderCode).
package shaderprep

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var includeRegex = regexp.MustCompile(`#include\s+"([^"]+)"`)

// ExpandIncludes reads the GLSL file at path, recursively inlining every
// #include "relative/path" directive it finds, and returns the fully
// expanded source with Preamble prepended. Include paths are resolved
// relative to the directory of the file that references them.
//
// A file that (directly or transitively) includes itself is rejected with a
// returned "cyclic #include" error rather than silently truncating the
// cycle.
func ExpandIncludes(path string) (string, error) {
	body, err := expandFile(path, map[string]bool{})
	if err != nil {
		return "", err
	}
	return Preamble + body, nil
}

func expandFile(path string, visiting map[string]bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("shaderprep: resolving %q: %w", path, err)
	}

	if visiting[abs] {
		return "", fmt.Errorf("shaderprep: cyclic #include detected at %q", path)
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	contents, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("shaderprep: reading %q: %w", path, err)
	}

	dir := filepath.Dir(abs)

	var expandErr error
	expanded := includeRegex.ReplaceAllStringFunc(string(contents), func(match string) string {
		if expandErr != nil {
			return match
		}
		sub := includeRegex.FindStringSubmatch(match)
		includedPath := filepath.Join(dir, sub[1])
		inner, err := expandFile(includedPath, visiting)
		if err != nil {
			expandErr = err
			return match
		}
		return inner
	})
	if expandErr != nil {
		return "", expandErr
	}

	return expanded, nil
}

// StageFromExtension maps a GLSL file's sub-extension (.vert, .frag, .comp,
// .geom, possibly doubled as foo.vert.glsl) to its shader stage name, for
// callers that dispatch compilation by stage.
func StageFromExtension(path string) (string, error) {
	name := path
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".glsl" {
		name = strings.TrimSuffix(name, filepath.Ext(name))
		ext = strings.ToLower(filepath.Ext(name))
	}
	switch ext {
	case ".vert":
		return "vertex", nil
	case ".frag":
		return "fragment", nil
	case ".comp":
		return "compute", nil
	case ".geom":
		return "geometry", nil
	default:
		return "", fmt.Errorf("shaderprep: unsupported shader sub-extension %q", ext)
	}
}
