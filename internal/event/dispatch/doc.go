// Package dispatch invokes event listeners in the emitting goroutine,
// recovering panics and counting outcomes.
//
//	r := dispatch.NewRunner(time.Second)
//	rep := r.Run(ctx, func(ctx context.Context) error { return l.Handle(ctx, evt) })
//	if rep.Outcome == dispatch.Panicked {
//	    logger.Error("listener panicked", zap.Any("panic", rep.Panic))
//	}
//
// A listener due after ctx is done is not called; its Report is Skipped
// and carries ctx.Err().
package dispatch
