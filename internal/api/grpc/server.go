package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/NinePK/back-car/internal/api/grpc/interceptor"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/security"
)

// ServiceName is the rental read service and its health-checked name.
const ServiceName = "backcar.rental.v1.RentalEngine"

// NewServer builds the gRPC server with the rental read service, health and
// reflection registered. Every service starts out NOT_SERVING until a
// HealthWatcher reports otherwise.
func NewServer(tm security.TokenManager, rentals RentalReadServer) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.Logging(),
			interceptor.NewAuthInterceptor(tm).Unary(),
		),
	)
	RegisterRentalReadServer(s, rentals)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	// Register reflection service for grpcurl
	reflection.Register(s)
	return s, hs
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthWatcher keeps the serving status in line with the storage backend.
type HealthWatcher struct {
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	serving  bool
}

// NewHealthWatcher returns a watcher. A nil pinger means the backend is
// always reachable.
func NewHealthWatcher(hs *health.Server, pinger Pinger, interval time.Duration) *HealthWatcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthWatcher{health: hs, pinger: pinger, interval: interval}
}

// Run checks the backend until ctx is cancelled, then marks every service
// NOT_SERVING.
func (w *HealthWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.Check(ctx)
		select {
		case <-ctx.Done():
			w.health.Shutdown()
			return nil
		case <-ticker.C:
		}
	}
}

// Check probes the backend once and updates the serving status.
func (w *HealthWatcher) Check(ctx context.Context) {
	serving := true
	if w.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, w.interval/2)
		err := w.pinger.PingContext(pingCtx)
		cancel()
		if err != nil {
			serving = false
			if w.serving {
				logger.WarnContext(ctx, "Storage backend unreachable", "error", err)
			}
		}
	}
	if serving && !w.serving {
		logger.InfoContext(ctx, "Storage backend reachable")
	}
	w.serving = serving

	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	w.health.SetServingStatus("", st)
	w.health.SetServingStatus(ServiceName, st)
}
