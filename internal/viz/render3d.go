package viz

import (
	"github.com/chewxy/math32"
)

// Camera looks down -Z at the origin from Distance.
type Camera struct {
	Distance float32
	FOV      float32 // vertical, radians
	Zoom     float32
	Near     float32
}

func NewCamera() Camera {
	return Camera{Distance: 40, FOV: math32.Pi / 3, Zoom: 1, Near: 1}
}

func (c *Camera) ZoomIn()  { c.Zoom = math32.Min(8, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math32.Max(0.125, c.Zoom/1.2) }

// View is a camera fixed for one frame: object orientation and viewport.
type View struct {
	cy, sy, cp, sp float32
	focal          float32
	zoom, dist     float32
	near           float32
	w, h           int
}

// View prepares projection of an object rotated by yaw about Y and then by
// pitch about X onto a w×h viewport.
func (c Camera) View(yaw, pitch float32, w, h int) View {
	return View{
		cy: math32.Cos(yaw), sy: math32.Sin(yaw),
		cp: math32.Cos(pitch), sp: math32.Sin(pitch),
		focal: float32(h) / 2 / math32.Tan(c.FOV/2),
		zoom:  c.Zoom,
		dist:  c.Distance,
		near:  c.Near,
		w:     w,
		h:     h,
	}
}

// Rotate applies the object orientation.
func (v View) Rotate(x, y, z float32) (float32, float32, float32) {
	x, z = x*v.cy+z*v.sy, -x*v.sy+z*v.cy
	y, z = y*v.cp-z*v.sp, y*v.sp+z*v.cp
	return x, y, z
}

// Project returns screen coordinates and depth of a point. Depth grows
// toward the camera. ok is false for points behind the near plane or off
// screen.
func (v View) Project(x, y, z float32) (sx, sy int, depth float32, ok bool) {
	x, y, z = v.Rotate(x*v.zoom, y*v.zoom, z*v.zoom)
	d := v.dist - z
	if d < v.near {
		return 0, 0, z, false
	}
	s := v.focal / d
	fx := float32(v.w)/2 + x*s
	fy := float32(v.h)/2 - y*s
	sx, sy = int(math32.Floor(fx)), int(math32.Floor(fy))
	return sx, sy, z, sx >= 0 && sx < v.w && sy >= 0 && sy < v.h
}

// Scale is the screen size of one world unit at the origin.
func (v View) Scale() float32 { return v.focal / v.dist * v.zoom }

// Mat4 is a column-major 4x4 matrix.
type Mat4 [16]float32

func identity() Mat4 {
	return Mat4{0: 1, 5: 1, 10: 1, 15: 1}
}

// Mul returns m·o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var s float32
			for k := 0; k < 4; k++ {
				s += m[k*4+row] * o[col*4+k]
			}
			r[col*4+row] = s
		}
	}
	return r
}

// Apply transforms (x, y, z, 1).
func (m Mat4) Apply(x, y, z float32) (float32, float32, float32, float32) {
	return m[0]*x + m[4]*y + m[8]*z + m[12],
		m[1]*x + m[5]*y + m[9]*z + m[13],
		m[2]*x + m[6]*y + m[10]*z + m[14],
		m[3]*x + m[7]*y + m[11]*z + m[15]
}

const far = 1000

// Matrix is the model-view-projection for an object rotated by yaw and
// pitch, for GPU drawing. It agrees with View.Project.
func (c Camera) Matrix(yaw, pitch, aspect float32) Mat4 {
	model := identity()
	model[0], model[5], model[10] = c.Zoom, c.Zoom, c.Zoom

	cy, sy := math32.Cos(yaw), math32.Sin(yaw)
	ry := identity()
	ry[0], ry[2], ry[8], ry[10] = cy, -sy, sy, cy

	cp, sp := math32.Cos(pitch), math32.Sin(pitch)
	rx := identity()
	rx[5], rx[6], rx[9], rx[10] = cp, sp, -sp, cp

	view := identity()
	view[14] = -c.Distance

	f := 1 / math32.Tan(c.FOV/2)
	var proj Mat4
	proj[0] = f / aspect
	proj[5] = f
	proj[10] = (far + c.Near) / (c.Near - far)
	proj[11] = -1
	proj[14] = 2 * far * c.Near / (c.Near - far)

	return proj.Mul(view).Mul(rx).Mul(ry).Mul(model)
}
