package telemetry

import "context"

type requestIDKey struct{}

// WithRequestID returns ctx carrying the HTTP request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithContext adds request_id to fields when ctx carries one.
func WithContext(ctx context.Context, fields map[string]any) map[string]any {
	id := RequestID(ctx)
	if id == "" {
		return fields
	}
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields["request_id"] = id
	return fields
}
