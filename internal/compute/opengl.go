package compute

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/san-kum/morphcloud/internal/engine"
)

//go:embed shaders
var shaderFS embed.FS

// GL_CONTEXT_LOST is core only from 4.5.
const glContextLost = 0x0507

// ErrCapacity is returned when uploading more particles than allocated.
var ErrCapacity = errors.New("compute: particle count exceeds buffer capacity")

type PointCloud struct {
	Program  uint32
	VAO      uint32
	VBOPos   uint32
	VBOCol   uint32
	Capacity int

	PointSize float32
	Distance  float32

	locMVP, locSize, locDist int32
	Initialized              bool
}

func NewPointCloud(capacity int) *PointCloud {
	return &PointCloud{Capacity: capacity, PointSize: 2.5, Distance: 40}
}

func (c *PointCloud) Name() string { return "opengl" }

// Init loads GL entry points from the current context, builds the shader
// program and allocates both vertex buffers.
func (c *PointCloud) Init() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("compute: init opengl: %w", err)
	}

	vs, err := shaderFS.ReadFile("shaders/points.vert")
	if err != nil {
		return err
	}
	fs, err := shaderFS.ReadFile("shaders/points.frag")
	if err != nil {
		return err
	}
	program, err := createProgram(string(vs), string(fs))
	if err != nil {
		return err
	}
	c.Program = program
	c.locMVP = gl.GetUniformLocation(program, gl.Str("mvp\x00"))
	c.locSize = gl.GetUniformLocation(program, gl.Str("pointSize\x00"))
	c.locDist = gl.GetUniformLocation(program, gl.Str("distance\x00"))

	size := c.Capacity * 3 * 4

	gl.GenVertexArrays(1, &c.VAO)
	gl.BindVertexArray(c.VAO)

	gl.GenBuffers(1, &c.VBOPos)
	gl.BindBuffer(gl.ARRAY_BUFFER, c.VBOPos)
	gl.BufferData(gl.ARRAY_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 0, 0)

	gl.GenBuffers(1, &c.VBOCol)
	gl.BindBuffer(gl.ARRAY_BUFFER, c.VBOCol)
	gl.BufferData(gl.ARRAY_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, 0, 0)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	c.Initialized = true
	return c.Check()
}

// Upload copies the first n particles into the vertex buffers.
func (c *PointCloud) Upload(positions, colors []float32, n int) error {
	if !c.Initialized || n == 0 {
		return nil
	}
	if n > c.Capacity || len(positions) < n*3 || len(colors) < n*3 {
		return ErrCapacity
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, c.VBOPos)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, n*3*4, gl.Ptr(positions))
	gl.BindBuffer(gl.ARRAY_BUFFER, c.VBOCol)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, n*3*4, gl.Ptr(colors))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

// Draw renders n points. mvp is column major.
func (c *PointCloud) Draw(mvp [16]float32, n int) {
	if !c.Initialized || n == 0 {
		return
	}

	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	gl.Disable(gl.DEPTH_TEST)

	gl.UseProgram(c.Program)
	gl.UniformMatrix4fv(c.locMVP, 1, false, &mvp[0])
	gl.Uniform1f(c.locSize, c.PointSize)
	gl.Uniform1f(c.locDist, c.Distance)

	gl.BindVertexArray(c.VAO)
	gl.DrawArrays(gl.POINTS, 0, int32(n))
	gl.BindVertexArray(0)
	gl.UseProgram(0)

	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
}

// Check drains the GL error queue. A lost context wraps
// engine.ErrContextLost.
func (c *PointCloud) Check() error {
	var codes []uint32
	for i := 0; i < 8; i++ {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			break
		}
		codes = append(codes, code)
	}
	return classify(codes)
}

func classify(codes []uint32) error {
	if len(codes) == 0 {
		return nil
	}
	for _, code := range codes {
		if code == glContextLost {
			return fmt.Errorf("compute: %w", engine.ErrContextLost)
		}
	}
	return fmt.Errorf("compute: gl error 0x%04x", codes[0])
}

// Release frees the GL objects. The context must still be current.
func (c *PointCloud) Release() {
	if !c.Initialized {
		return
	}
	gl.DeleteBuffers(1, &c.VBOPos)
	gl.DeleteBuffers(1, &c.VBOCol)
	gl.DeleteVertexArrays(1, &c.VAO)
	gl.DeleteProgram(c.Program)
	c.Initialized = false
}

func compile(kind uint32, source string) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compute: compile shader: %v", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func createProgram(vertex, fragment string) (uint32, error) {
	vs, err := compile(gl.VERTEX_SHADER, vertex)
	if err != nil {
		return 0, err
	}
	fs, err := compile(gl.FRAGMENT_SHADER, fragment)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("compute: link program failed")
	}
	return program, nil
}
