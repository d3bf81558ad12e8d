package shaderprep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestExpandIncludesInlinesDependency(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.glsl", "vec3 tint() { return vec3(1.0); }\n")
	root := writeFile(t, dir, "main.frag", "#include \"common.glsl\"\nvoid main() {}\n")

	out, err := ExpandIncludes(root)
	require.NoError(t, err)
	assert.Contains(t, out, "tint()")
	assert.Contains(t, out, "void main()")
	assert.Contains(t, out, "u_addresses")
}

func TestExpandIncludesDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.glsl", "#include \"b.glsl\"\n")
	writeFile(t, dir, "b.glsl", "#include \"a.glsl\"\n")

	_, err := ExpandIncludes(filepath.Join(dir, "a.glsl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic")
}

func TestStageFromExtension(t *testing.T) {
	stage, err := StageFromExtension("shaders/lighting.frag")
	require.NoError(t, err)
	assert.Equal(t, "fragment", stage)

	stage, err = StageFromExtension("shaders/blur.comp.glsl")
	require.NoError(t, err)
	assert.Equal(t, "compute", stage)

	_, err = StageFromExtension("shaders/notes.txt")
	assert.Error(t, err)
}
