package grpc_control

import (
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/models"
)

// Health service names. Orchestrators probe these with the standard
// grpc.health.v1 protocol.
const (
	ServicePush  = "dashboard.push"
	ServiceFresh = "dashboard.fresh"
)

// -----------------------------------------------------------------------------
// HealthReporter mirrors the dashboard state into a gRPC health server:
// dashboard.push is SERVING while the push channel is live and
// dashboard.fresh is SERVING while the state snapshot is not stale.
// -----------------------------------------------------------------------------

type HealthReporter struct {
	Logger *logger.Logger

	health *health.Server

	mu      sync.Mutex
	server  *grpc.Server
	stopped bool
}

var _ interfaces.IRenderer = (*HealthReporter)(nil)

func NewHealthReporter(log *logger.Logger) *HealthReporter {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServicePush, healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceFresh, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthReporter{
		Logger: log,
		health: hs,
	}
}

// Health exposes the underlying server, mostly for in-process checks.
func (h *HealthReporter) Health() healthpb.HealthServer {
	return h.health
}

// -----------------------------------------------------------------------------

func (h *HealthReporter) Render(frame *models.MFrame) {
	h.health.SetServingStatus(ServiceFresh, servingIf(!frame.Stale))
}

func (h *HealthReporter) SetLinkStatus(status models.LinkStatus) {
	h.health.SetServingStatus(ServicePush, servingIf(status == models.LinkLive))
}

func servingIf(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// -----------------------------------------------------------------------------

// Start serves the health service on port. It blocks until Stop is called.
func (h *HealthReporter) Start(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	return h.Serve(lis)
}

func (h *HealthReporter) Serve(lis net.Listener) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h.health)

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		lis.Close()
		return nil
	}
	h.server = srv
	h.mu.Unlock()

	h.Logger.Info("Starting gRPC health server on %s", lis.Addr())
	return srv.Serve(lis)
}

func (h *HealthReporter) Stop() {
	h.health.Shutdown()

	h.mu.Lock()
	srv := h.server
	h.stopped = true
	h.mu.Unlock()
	if srv != nil {
		srv.GracefulStop()
	}
}
