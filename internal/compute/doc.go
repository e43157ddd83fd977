// Package compute uploads and draws the particle cloud on the GPU.
//
// [PointCloud] keeps positions and colors in two vertex buffers and draws
// them as round, additive points with one shader program:
//
//	pc := compute.NewPointCloud(n)
//	if err := pc.Init(); err != nil {
//	    // fall back to the CPU point path
//	}
//	pc.Upload(frame.Positions, frame.Colors, frame.Count)
//	pc.Draw(cam.Matrix(frame.Yaw, frame.Pitch, aspect), frame.Count)
//	if err := pc.Check(); errors.Is(err, engine.ErrContextLost) { ... }
//
// All calls must happen on the thread that owns the GL context.
package compute
