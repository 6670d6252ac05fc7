// Package tenant carries the opaque tenant partition key through request
// contexts. The core never interprets the key; isolation is the collaborator's
// job and is treated as already enforced by the time a request lands here.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// WithID returns a derived context carrying the tenant id.
func WithID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// FromContext extracts the tenant id and a boolean indicating presence.
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return tenantID, ok
}
