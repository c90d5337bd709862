package api

import "context"

var ctxKeyRequestID = contextKey("request id")

type contextKey string

func (c contextKey) String() string {
	return "scriptstore context key " + string(c)
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}
