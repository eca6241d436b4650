// Package context carries the bob executor of a running transaction.
package context

import (
	"context"

	"github.com/stephenafamo/bob"
)

type executorKey struct{}

func NewContext(ctx context.Context, executor bob.Executor) context.Context {
	return context.WithValue(ctx, executorKey{}, executor)
}

func FromContext(ctx context.Context) bob.Executor {
	if ctx == nil {
		return nil
	}
	if executor, ok := ctx.Value(executorKey{}).(bob.Executor); ok {
		return executor
	}
	return nil
}
