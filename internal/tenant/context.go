// Package tenant carries the caller identity that scopes every index read
// and write. The identity is supplied by the auth layer and trusted as-is.
package tenant

import "context"

// Identity is the opaque per-request caller identity. OwnerID scopes all
// documents, chunks and index entries; Name is display-only.
type Identity struct {
	OwnerID string
	Name    string
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// OwnerIDFromContext returns the caller's owner id, or "" when no identity
// was attached. Callers must treat "" as an unauthenticated request.
func OwnerIDFromContext(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.OwnerID
}
