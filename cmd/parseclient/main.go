package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	grpcapi "voice-appointment-service/internal/api/grpc"
	"voice-appointment-service/internal/observability/logging"
)

func main() {
	serverAddr := flag.String("server", "localhost:50051", "gRPC server address")
	choice := flag.String("choice", "", "Resolve an ambiguous time with morning or afternoon")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Format = "console"
	logging.Init(logCfg)

	transcript := strings.Join(flag.Args(), " ")
	if transcript == "" {
		transcript = "cita con juan a las 9 en la sede norte por 45 minutos"
	}

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outcome := call(ctx, conn, grpcapi.MethodParse, map[string]any{"transcript": transcript})
	printStruct("outcome", outcome)

	if *choice == "" {
		return
	}
	resolved := call(ctx, conn, grpcapi.MethodResolve, map[string]any{
		"outcome": outcome.AsMap(),
		"choice":  *choice,
	})
	printStruct("resolved", resolved)
}

func call(ctx context.Context, conn *grpc.ClientConn, method string, req map[string]any) *structpb.Struct {
	in, err := structpb.NewStruct(req)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build request")
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, method, in, out); err != nil {
		log.Fatal().Err(err).Str("method", method).Msg("call failed")
	}
	return out
}

func printStruct(label string, s *structpb.Struct) {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to render response")
	}
	fmt.Printf("%s:\n%s\n", label, b)
}
