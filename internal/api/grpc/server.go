// Package grpcapi exposes parsing, disambiguation and availability over gRPC.
// Messages are google.protobuf.Struct values carrying the same JSON shapes as
// the HTTP API.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"voice-appointment-service/internal/models"
	"voice-appointment-service/internal/service/availability"
	"voice-appointment-service/internal/service/disambiguation"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "voice.scheduling.v1.SchedulingService"

// Full method names, for clients invoking without generated stubs.
const (
	MethodParse             = "/" + ServiceName + "/Parse"
	MethodResolve           = "/" + ServiceName + "/Resolve"
	MethodCheckAvailability = "/" + ServiceName + "/CheckAvailability"
)

// SchedulingServer is the server API for the scheduling service.
type SchedulingServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Resolve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// TranscriptParser turns a transcript into an outcome.
type TranscriptParser interface {
	Parse(transcript string) models.Outcome
}

// AvailabilityChecker answers whether a slot is free.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, cand availability.Candidate, excludeID string) (bool, error)
}

// Server implements SchedulingServer.
type Server struct {
	parser  TranscriptParser
	checker AvailabilityChecker
}

// NewServer creates a scheduling server.
func NewServer(parser TranscriptParser, checker AvailabilityChecker) *Server {
	return &Server{parser: parser, checker: checker}
}

// Register registers the scheduling service on g.
func Register(g *grpc.Server, parser TranscriptParser, checker AvailabilityChecker) {
	g.RegisterService(&ServiceDesc, NewServer(parser, checker))
}

type parseRequest struct {
	Transcript string `json:"transcript"`
}

type resolveRequest struct {
	Outcome models.Outcome `json:"outcome"`
	Choice  string         `json:"choice"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

// Parse parses {transcript} and returns the outcome.
func (s *Server) Parse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req parseRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return encode(s.parser.Parse(req.Transcript))
}

// Resolve applies a morning/afternoon choice to an ambiguous outcome.
func (s *Server) Resolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req resolveRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	choice, err := disambiguation.ParseChoice(req.Choice)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resolved, err := disambiguation.Resolve(req.Outcome, choice)
	if err != nil {
		if errors.Is(err, disambiguation.ErrNoAmbiguity) || errors.Is(err, disambiguation.ErrNoTime) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return encode(resolved)
}

// CheckAvailability answers {date, time, duration, officeId?, excludeId?}.
func (s *Server) CheckAvailability(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req availability.Request
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	cand, err := req.Candidate()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	ok, err := s.checker.CheckAvailability(ctx, cand, req.ExcludeID)
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return encode(availabilityResponse{Available: ok})
}

func decode(in *structpb.Struct, v any) error {
	b, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(b, v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func unaryHandler(call func(SchedulingServer, context.Context, *structpb.Struct) (*structpb.Struct, error), method string) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SchedulingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SchedulingServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the scheduling service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Parse", Handler: unaryHandler(SchedulingServer.Parse, MethodParse)},
		{MethodName: "Resolve", Handler: unaryHandler(SchedulingServer.Resolve, MethodResolve)},
		{MethodName: "CheckAvailability", Handler: unaryHandler(SchedulingServer.CheckAvailability, MethodCheckAvailability)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "voice/scheduling/v1/scheduling.proto",
}
