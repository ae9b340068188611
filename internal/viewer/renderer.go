package viewer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/surface-atlas/internal/atlas"
	"github.com/Faultbox/surface-atlas/internal/debug"
	"github.com/Faultbox/surface-atlas/internal/gpu/gldev"
	"github.com/Faultbox/surface-atlas/internal/scene"
	"github.com/Faultbox/surface-atlas/pkg/math"
)

const gbuffer0Attachment = 1

const tileVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;

uniform mat4 uModel;
uniform mat4 uView;
uniform mat4 uProjection;

out vec3 vNormal;

void main() {
	vNormal = normalize(mat3(uModel) * aNormal);
	gl_Position = uProjection * uView * uModel * vec4(aPosition, 1.0);
}
`

const tileFragmentShader = `#version 410 core
in vec3 vNormal;

uniform vec3 uBaseColor;
uniform vec3 uEmissive;

layout(location = 0) out vec4 outEmissive;
layout(location = 1) out vec4 outGBuffer0;
layout(location = 2) out vec4 outGBuffer1;
layout(location = 3) out vec4 outGBuffer2;

void main() {
	outEmissive = vec4(uEmissive, 1.0);
	outGBuffer0 = vec4(uBaseColor, 1.0);
	outGBuffer1 = vec4(normalize(vNormal) * 0.5 + 0.5, 1.0);
	outGBuffer2 = vec4(0.0, 0.5, 0.0, 1.0); // metalness, roughness, ao
}
`

// TextureSource provides the atlas render targets, which change when the
// atlas is rebuilt.
type TextureSource interface {
	Textures() atlas.Textures
}

// TileRenderer rasterizes object faces into the atlas GBuffer.
type TileRenderer struct {
	source TextureSource
	log    *zap.Logger

	bound   atlas.Textures
	fb      *gldev.Framebuffer
	program *gldev.Program
	cube    mesh
}

// NewTileRenderer compiles the tile shaders. Requires a current GL context.
func NewTileRenderer(source TextureSource, log *zap.Logger) (*TileRenderer, error) {
	program, err := gldev.CompileProgram(tileVertexShader, tileFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("tile program: %w", err)
	}
	return &TileRenderer{
		source:  source,
		log:     log,
		program: program,
		cube:    newCubeMesh(),
	}, nil
}

func glTexture(t any) (*gldev.Texture, error) {
	tex, ok := t.(*gldev.Texture)
	if !ok {
		return nil, fmt.Errorf("atlas texture %T is not a GL texture", t)
	}
	return tex, nil
}

// target returns a framebuffer over the current atlas textures.
func (r *TileRenderer) target() *gldev.Framebuffer {
	textures := r.source.Textures()
	if r.fb != nil && textures == r.bound {
		return r.fb
	}
	if r.fb != nil {
		r.fb.Destroy()
		r.fb = nil
	}

	// Attachment order matches the fragment outputs; GBuffer0 is gbuffer0Attachment.
	var color []*gldev.Texture
	for _, t := range []any{textures.Emissive, textures.GBuffer0, textures.GBuffer1, textures.GBuffer2} {
		tex, err := glTexture(t)
		if err != nil {
			r.log.Error("binding atlas", zap.Error(err))
			return nil
		}
		color = append(color, tex)
	}
	depth, err := glTexture(textures.Depth)
	if err != nil {
		r.log.Error("binding atlas", zap.Error(err))
		return nil
	}

	fb, err := gldev.NewFramebuffer(color, depth)
	if err != nil {
		r.log.Error("binding atlas", zap.Error(err))
		return nil
	}
	r.fb = fb
	r.bound = textures
	return fb
}

// Snapshot reads back the base color attachment.
func (r *TileRenderer) Snapshot() (*image.RGBA, error) {
	fb := r.target()
	if fb == nil {
		return nil, fmt.Errorf("atlas not bound")
	}
	w, h := fb.Size()
	return debug.ImageFromPixels(fb.ReadPixels(gbuffer0Attachment), int(w), int(h))
}

// ClearAtlas clears every attachment.
func (r *TileRenderer) ClearAtlas() {
	fb := r.target()
	if fb == nil {
		return
	}
	restore := fb.BindWithViewport()
	defer restore()
	fb.Clear(0, 0, 0, 0)
}

// ClearTiles clears each tile's rectangle including its padding.
func (r *TileRenderer) ClearTiles(tiles []*atlas.Tile) {
	fb := r.target()
	if fb == nil {
		return
	}
	restore := fb.BindWithViewport()
	defer restore()
	for _, t := range tiles {
		fb.ClearRect(int32(t.X), int32(t.Y), int32(t.Width), int32(t.Height), 0, 0, 0, 0)
	}
}

// DrawTile draws the object's box from the face camera into the tile.
func (r *TileRenderer) DrawTile(obj *atlas.Object, face atlas.Face, tile *atlas.Tile) {
	fb := r.target()
	if fb == nil {
		return
	}
	restore := fb.BindWithViewport()
	defer restore()

	vp := atlas.TileViewport(tile)
	gl.Viewport(int32(vp.X), int32(vp.Y), int32(vp.Width), int32(vp.Height))
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	ext := obj.Bounds.Extents
	model := obj.Bounds.Transform.Mul(math.Scale(ext.X, ext.Y, ext.Z))
	base, emissive := surfaceColors(obj)

	r.program.Use()
	r.program.SetMat4("uModel", model)
	r.program.SetMat4("uView", tile.Value.ViewMatrix)
	r.program.SetMat4("uProjection", atlas.TileProjection(tile))
	r.program.SetVec3("uBaseColor", base[0], base[1], base[2])
	r.program.SetVec3("uEmissive", emissive[0], emissive[1], emissive[2])
	r.cube.draw()

	gl.Disable(gl.DEPTH_TEST)
}

// surfaceColors derives a stable albedo per actor. Dynamic actors glow a little.
func surfaceColors(obj *atlas.Object) (base, emissive [3]float32) {
	id := uint64(obj.Handle)
	if a, ok := obj.Actor.(*scene.Actor); ok {
		id = a.ID
	}
	h := id*0x9E3779B97F4A7C15 ^ id>>29
	base = [3]float32{
		0.3 + 0.6*float32(h&0xff)/255,
		0.3 + 0.6*float32(h>>8&0xff)/255,
		0.3 + 0.6*float32(h>>16&0xff)/255,
	}
	if !obj.Static {
		emissive = [3]float32{base[0] * 0.2, base[1] * 0.2, base[2] * 0.2}
	}
	return base, emissive
}

// Release frees GL resources.
func (r *TileRenderer) Release() {
	if r.fb != nil {
		r.fb.Destroy()
		r.fb = nil
	}
	r.cube.release()
	r.program.Delete()
}

// mesh is a non-indexed triangle list with position and normal attributes.
type mesh struct {
	vao, vbo uint32
	count    int32
}

// newCubeMesh builds a [-1, 1]³ cube.
func newCubeMesh() mesh {
	var verts []float32
	for axis := 0; axis < 3; axis++ {
		for _, sign := range []float32{-1, 1} {
			n := math.Vec3{}.WithAxis(axis, sign)
			u := math.Vec3{}.WithAxis((axis+1)%3, 1)
			v := n.Cross(u)
			corner := func(a, b float32) math.Vec3 {
				return n.Add(u.Scale(a)).Add(v.Scale(b))
			}
			for _, p := range []math.Vec3{
				corner(-1, -1), corner(1, -1), corner(1, 1),
				corner(-1, -1), corner(1, 1), corner(-1, 1),
			} {
				verts = append(verts, p.X, p.Y, p.Z, n.X, n.Y, n.Z)
			}
		}
	}
	return newMesh(verts, []int32{3, 3})
}

// newMesh uploads interleaved float attributes with the given component counts.
func newMesh(verts []float32, layout []int32) mesh {
	var stride int32
	for _, n := range layout {
		stride += n
	}

	var m mesh
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)
	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STATIC_DRAW)

	var offset int32
	for i, n := range layout {
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointerWithOffset(uint32(i), n, gl.FLOAT, false, stride*4, uintptr(offset*4))
		offset += n
	}
	gl.BindVertexArray(0)

	m.count = int32(len(verts)) / stride
	return m
}

func (m *mesh) draw() {
	gl.BindVertexArray(m.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, m.count)
	gl.BindVertexArray(0)
}

func (m *mesh) release() {
	if m.vbo != 0 {
		gl.DeleteBuffers(1, &m.vbo)
		m.vbo = 0
	}
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
		m.vao = 0
	}
}
