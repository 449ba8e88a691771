package utils

import "golang.org/x/net/context"

// CheckContextDone indicates whether the context was cancelled or passed its deadline, without blocking.
func CheckContextDone(ctx context.Context) bool {
	return ctx.Err() != nil
}
