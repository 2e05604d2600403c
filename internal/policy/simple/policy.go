// Package simple contains the permissive fetch policy used when rate limiting
// is disabled.
package simple

import (
	"context"
	"fmt"
)

// Policy lets every fetch through immediately.
type Policy struct{}

// New creates a new Policy.
func New() *Policy {
	return &Policy{}
}

// Wait returns at once unless ctx is already done.
func (Policy) Wait(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("policy wait: %w", err)
	}
	return nil
}
