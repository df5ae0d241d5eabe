package user

import "context"

type identityCtxKey struct{}
type clientCtxKey struct{}

// ContextWithIdentity stores the verified identity in ctx. Its client id
// becomes the scope for every client-scoped store query.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, identityCtxKey{}, id)
	return context.WithValue(ctx, clientCtxKey{}, id.ClientID)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// ContextWithClient scopes ctx to a client without a user identity.
// Background jobs use it when acting on behalf of a client.
func ContextWithClient(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientCtxKey{}, clientID)
}

// ClientIDFromContext returns the client scope of ctx, or "" when unscoped.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientCtxKey{}).(string)
	return id
}
