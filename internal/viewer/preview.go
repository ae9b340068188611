package viewer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/surface-atlas/internal/debug"
	"github.com/Faultbox/surface-atlas/internal/gpu/gldev"
	"github.com/Faultbox/surface-atlas/pkg/math"
)

const lineVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aColor;

uniform mat4 uViewProjection;

out vec3 vColor;

void main() {
	vColor = aColor;
	gl_Position = uViewProjection * vec4(aPosition, 1.0);
}
`

const lineFragmentShader = `#version 410 core
in vec3 vColor;
out vec4 outColor;

void main() {
	outColor = vec4(vColor, 1.0);
}
`

const quadVertexShader = `#version 410 core
layout(location = 0) in vec2 aPosition;
out vec2 vUV;

void main() {
	vUV = aPosition * 0.5 + 0.5;
	gl_Position = vec4(aPosition, 0.0, 1.0);
}
`

const quadFragmentShader = `#version 410 core
in vec2 vUV;
uniform sampler2D uAtlas;
out vec4 outColor;

void main() {
	outColor = vec4(texture(uAtlas, vUV).rgb, 1.0);
}
`

// Preview draws debug lines in world space and the atlas as a screen inset.
type Preview struct {
	lines   *gldev.Program
	quad    *gldev.Program
	lineVAO uint32
	lineVBO uint32
	quadVAO mesh
	scratch []float32
}

// NewPreview compiles the preview shaders. Requires a current GL context.
func NewPreview() (*Preview, error) {
	lines, err := gldev.CompileProgram(lineVertexShader, lineFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("line program: %w", err)
	}
	quad, err := gldev.CompileProgram(quadVertexShader, quadFragmentShader)
	if err != nil {
		lines.Delete()
		return nil, fmt.Errorf("quad program: %w", err)
	}

	p := &Preview{lines: lines, quad: quad}
	p.quadVAO = newMesh([]float32{-1, -1, 1, -1, 1, 1, -1, -1, 1, 1, -1, 1}, []int32{2})

	gl.GenVertexArrays(1, &p.lineVAO)
	gl.BindVertexArray(p.lineVAO)
	gl.GenBuffers(1, &p.lineVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, p.lineVBO)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 6*4, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, 6*4, 3*4)
	gl.BindVertexArray(0)
	return p, nil
}

// DrawLines draws colored line pairs with the given camera.
func (p *Preview) DrawLines(verts []debug.Vertex, viewProjection math.Mat4) {
	if len(verts) == 0 {
		return
	}
	p.scratch = p.scratch[:0]
	for _, v := range verts {
		p.scratch = append(p.scratch, v.X, v.Y, v.Z, v.R, v.G, v.B)
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, p.lineVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(p.scratch)*4, gl.Ptr(p.scratch), gl.STREAM_DRAW)

	p.lines.Use()
	p.lines.SetMat4("uViewProjection", viewProjection)
	gl.Enable(gl.DEPTH_TEST)
	gl.BindVertexArray(p.lineVAO)
	gl.DrawArrays(gl.LINES, 0, int32(len(verts)))
	gl.BindVertexArray(0)
	gl.Disable(gl.DEPTH_TEST)
}

// DrawAtlas draws tex into the square at (x, y) with edge size, in window pixels.
func (p *Preview) DrawAtlas(tex *gldev.Texture, x, y, size int) {
	var prev [4]int32
	gl.GetIntegerv(gl.VIEWPORT, &prev[0])
	gl.Viewport(int32(x), int32(y), int32(size), int32(size))

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex.ID())
	p.quad.Use()
	p.quad.SetInt("uAtlas", 0)
	p.quadVAO.draw()
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.Viewport(prev[0], prev[1], prev[2], prev[3])
}

// Release frees GL resources.
func (p *Preview) Release() {
	if p.lineVBO != 0 {
		gl.DeleteBuffers(1, &p.lineVBO)
		p.lineVBO = 0
	}
	if p.lineVAO != 0 {
		gl.DeleteVertexArrays(1, &p.lineVAO)
		p.lineVAO = 0
	}
	p.quadVAO.release()
	p.lines.Delete()
	p.quad.Delete()
}
