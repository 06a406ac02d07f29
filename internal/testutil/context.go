package testutil

import (
	"context"

	"github.com/ledgerline/ledgerline/internal/types"
)

// SetupContext returns a workspace-scoped context the way request middleware
// would build it: default workspace and user, a fresh short request ID.
func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetWorkspaceID(ctx, types.DefaultWorkspaceID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	ctx = types.SetRequestID(ctx, types.GenerateShortID())
	return ctx
}
