package logger

import "context"

type contextKey string

const TraceIDKey contextKey = "trace_id"
const MemberIDKey contextKey = "member_id"

// WithTraceID tags ctx with the ID of the event being processed.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}

func WithMemberID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, MemberIDKey, id)
}

func GetMemberID(ctx context.Context) string {
	if id, ok := ctx.Value(MemberIDKey).(string); ok {
		return id
	}
	return ""
}
