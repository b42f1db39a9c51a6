package grpcapi

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"voice-appointment-service/internal/catalog"
	"voice-appointment-service/internal/observability"
	"voice-appointment-service/internal/observability/metrics"
	"voice-appointment-service/internal/service/availability"
	"voice-appointment-service/internal/service/voice"
)

type stubChecker struct {
	available bool
	err       error
	got       availability.Candidate
	excludeID string
}

func (c *stubChecker) CheckAvailability(ctx context.Context, cand availability.Candidate, excludeID string) (bool, error) {
	c.got, c.excludeID = cand, excludeID
	return c.available, c.err
}

func dial(t *testing.T, checker AvailabilityChecker) *grpc.ClientConn {
	t.Helper()
	now := time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)
	parser := voice.NewParser(catalog.Default(), voice.WithClock(func() time.Time { return now }))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)))
	Register(srv, parser, checker)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, req map[string]any) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	require.NoError(t, err)
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), method, in, out)
	return out, err
}

func TestParse(t *testing.T) {
	conn := dial(t, &stubChecker{})

	out, err := invoke(t, conn, MethodParse, map[string]any{
		"transcript": "cita con juan a las 9 en la sede norte por 45 minutos",
	})
	require.NoError(t, err)

	m := out.AsMap()
	values := m["values"].(map[string]any)
	assert.Equal(t, "2", values["patientId"])
	assert.Equal(t, "09:00", values["time"])
	assert.Equal(t, []any{"time-meridiem"}, m["ambiguities"])
	assert.Equal(t, false, m["isComplete"])
}

func TestResolve(t *testing.T) {
	conn := dial(t, &stubChecker{})

	parsed, err := invoke(t, conn, MethodParse, map[string]any{
		"transcript": "cita con juan a las 9 en la sede norte por 45 minutos",
	})
	require.NoError(t, err)

	out, err := invoke(t, conn, MethodResolve, map[string]any{
		"outcome": parsed.AsMap(),
		"choice":  "tarde",
	})
	require.NoError(t, err)

	m := out.AsMap()
	assert.Equal(t, "21:00", m["values"].(map[string]any)["time"])
	assert.Empty(t, m["ambiguities"])
}

func TestResolve_Errors(t *testing.T) {
	conn := dial(t, &stubChecker{})

	_, err := invoke(t, conn, MethodResolve, map[string]any{
		"outcome": map[string]any{"values": map[string]any{"time": "09:00"}, "ambiguities": []any{"time-meridiem"}},
		"choice":  "noon",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, conn, MethodResolve, map[string]any{
		"outcome": map[string]any{"values": map[string]any{"time": "15:00"}},
		"choice":  "morning",
	})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestCheckAvailability(t *testing.T) {
	checker := &stubChecker{available: true}
	conn := dial(t, checker)

	out, err := invoke(t, conn, MethodCheckAvailability, map[string]any{
		"date":      "2024-01-11",
		"time":      "15:00",
		"duration":  30,
		"officeId":  "1",
		"excludeId": "abc",
	})
	require.NoError(t, err)

	assert.Equal(t, true, out.AsMap()["available"])
	assert.Equal(t, "15:00", checker.got.Time.String())
	assert.Equal(t, 30, checker.got.Duration)
	assert.Equal(t, "abc", checker.excludeID)
}

func TestCheckAvailability_Errors(t *testing.T) {
	conn := dial(t, &stubChecker{err: errors.New("db down")})

	_, err := invoke(t, conn, MethodCheckAvailability, map[string]any{"time": "15:00", "duration": 30})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, conn, MethodCheckAvailability, map[string]any{"date": "2024-01-11", "time": "25:00", "duration": 30})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, conn, MethodCheckAvailability, map[string]any{"date": "2024-01-11", "time": "15:00", "duration": 30})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
