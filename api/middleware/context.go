package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/mealroute/lunchbox-backend/pkg/enums"
)

type contextKey string

const (
	ctxActorID   contextKey = "actor_id"
	ctxActorRole contextKey = "actor_role"
	ctxEmail     contextKey = "actor_email"
	ctxRequestID contextKey = "request_id"
)

func WithActor(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, email string) context.Context {
	ctx = context.WithValue(ctx, ctxActorID, actorID)
	ctx = context.WithValue(ctx, ctxActorRole, role)
	return context.WithValue(ctx, ctxEmail, email)
}

func ActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxActorID).(uuid.UUID)
	return id, ok
}

func ActorRoleFromContext(ctx context.Context) (enums.ActorRole, bool) {
	role, ok := ctx.Value(ctxActorRole).(enums.ActorRole)
	return role, ok
}

func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(ctxEmail).(string)
	return email, ok
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestID, requestID)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxRequestID).(string)
	return id, ok
}
