package testutil

import (
	"context"
	"net/http"

	"foodbridge/internal/platform/middleware"
	id "foodbridge/pkg/domain"
)

// AsActor adds actor identity to the request context, simulating what the
// auth middleware does for authenticated requests.
func AsActor(req *http.Request, actorID id.UserID, role middleware.Role) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, middleware.ContextKeyActorID, actorID)
	ctx = context.WithValue(ctx, middleware.ContextKeyRole, role)
	return req.WithContext(ctx)
}
