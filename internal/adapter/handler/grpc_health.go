package handler

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// LedgerServiceName is the name reported through the gRPC health protocol.
const LedgerServiceName = "stockledger.v1.Ledger"

// NewGRPCServer returns a server exposing grpc.health.v1 for the ledger and
// the health service that controls its status.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus(LedgerServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}
