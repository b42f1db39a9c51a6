package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"voice-appointment-service/internal/observability/metrics"
)

// UnaryServerInterceptor records every unary scheduling call and logs it at
// a level derived from its status code.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observe(ctx, m, info.FullMethod, "unary", start, err)
		return resp, err
	}
}

// StreamServerInterceptor is the streaming counterpart, used by the health
// watch and reflection services.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		observe(ss.Context(), m, info.FullMethod, "stream", start, err)
		return err
	}
}

func observe(ctx context.Context, m *metrics.Metrics, method, kind string, start time.Time, err error) {
	elapsed := time.Since(start)
	code := status.Code(err)
	if m != nil {
		m.RecordGRPCRequest(method, code.String(), elapsed.Seconds())
	}

	ev := log.WithLevel(levelFor(code)).
		Str("method", method).
		Str("kind", kind).
		Str("code", code.String()).
		Dur("duration", elapsed)
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		ev = ev.Str("peer", p.Addr.String())
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("gRPC call")
}

// levelFor keeps caller mistakes at warn and reserves error for server faults.
func levelFor(code codes.Code) zerolog.Level {
	switch code {
	case codes.OK:
		return zerolog.InfoLevel
	case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound, codes.Canceled, codes.DeadlineExceeded:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
