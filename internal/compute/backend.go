package compute

// Backend draws a point cloud. PointCloud is the GPU backend; the desktop
// app supplies a CPU one.
type Backend interface {
	Name() string
	Upload(positions, colors []float32, n int) error
	Draw(mvp [16]float32, n int)
	// Check reports a lost or failing context after a frame.
	Check() error
	Release()
}

var _ Backend = (*PointCloud)(nil)
