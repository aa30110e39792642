// Package groutine starts goroutines with a pprof-visible name so a stuck
// dispatcher connection or a leaked device-disconnect fan-out can be told
// apart in a goroutine dump.
package groutine

import (
	"context"
	"runtime/pprof"
	"sync"
)

type ctxKey string

const goroutineNameKey ctxKey = "goroutine_name"

// Go starts a named goroutine derived from parentCtx.
//
//	groutine.Go(ctx, "conn-"+remoteAddr, func(ctx context.Context) {
//	    handleConnection(ctx, conn)
//	})
//
// If parentCtx is nil, context.Background() is used.
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		ctx = context.WithValue(ctx, goroutineNameKey, name)
		fn(ctx)
	})
}

// GoWaitGroup starts a named goroutine and marks it done on wg when fn
// returns. Used to fan out best-effort work (e.g. disconnecting every
// cached device on shutdown) and still know when the fan-out is complete.
func GoWaitGroup(parentCtx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	Go(parentCtx, name, func(ctx context.Context) {
		defer wg.Done()
		fn(ctx)
	})
}

// GetName retrieves the goroutine name from the context.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(goroutineNameKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
