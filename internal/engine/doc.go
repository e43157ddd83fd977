// Package engine drives the particle cloud one frame at a time.
//
// An [Engine] owns a particle buffer, a gesture mapper and a [Renderer].
// Each tick it reads the mapper's snapshot, steers the orientation and the
// expansion, advances the buffer and hands a [Frame] to the renderer.
//
// Renderers bound to a thread (OpenGL windows) call [Engine.Tick] from
// their own loop. Everything else can use [Engine.Start] or [Engine.Run].
//
// Example:
//
//	e, err := engine.New(engine.DefaultConfig(), engine.NopRenderer{})
//	if err != nil {
//		return err
//	}
//	defer e.Dispose()
//
//	go source.NewServer().Run(ctx, e)
//	return e.Run(ctx)
package engine
