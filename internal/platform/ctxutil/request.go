package ctxutil

import (
	"context"
	"slices"
)

type requestDataKey struct{}

// RequestData follows one API call. AttachRequestContext creates it and the
// auth middleware records the caller on the same value.
type RequestData struct {
	RequestID string
	TraceID   string

	Subject string
	Scopes  []string
}

func (rd *RequestData) Authenticated() bool {
	return rd != nil && rd.Subject != ""
}

func (rd *RequestData) HasScope(scope string) bool {
	return rd.Authenticated() && slices.Contains(rd.Scopes, scope)
}

// LogFields returns the non-empty ids as logger key/value pairs.
func (rd *RequestData) LogFields() []interface{} {
	if rd == nil {
		return nil
	}
	var kv []interface{}
	if rd.RequestID != "" {
		kv = append(kv, "request_id", rd.RequestID)
	}
	if rd.TraceID != "" {
		kv = append(kv, "trace_id", rd.TraceID)
	}
	if rd.Subject != "" {
		kv = append(kv, "subject", rd.Subject)
	}
	return kv
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// EnsureRequestData returns the request data on ctx, attaching an empty one
// when there is none.
func EnsureRequestData(ctx context.Context) (context.Context, *RequestData) {
	if rd := GetRequestData(ctx); rd != nil {
		return ctx, rd
	}
	rd := &RequestData{}
	return WithRequestData(ctx, rd), rd
}

// Default returns ctx, or context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
