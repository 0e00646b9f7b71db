// Package probe exposes model readiness over the standard gRPC health
// protocol, for orchestrators that probe with grpc_health_probe.
package probe

import (
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "gemmad.Generator"

// DefaultStopTimeout bounds how long Stop waits for open RPCs, such as
// Health/Watch streams, before closing connections.
const DefaultStopTimeout = 5 * time.Second

// Server is a gRPC server carrying only health and reflection.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    zerolog.Logger

	// StopTimeout overrides DefaultStopTimeout when positive.
	StopTimeout time.Duration
}

// New returns a Server reporting NOT_SERVING until SetServing(true).
func New(log zerolog.Logger) *Server {
	s := &Server{
		srv:    grpc.NewServer(grpc.MaxRecvMsgSize(64 << 10)),
		health: health.NewServer(),
		log:    log,
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	s.SetServing(false)
	return s
}

// SetServing flips the reported status for both the overall and named service.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	s.log.Debug().Str("status", st.String()).Msg("grpc health status")
}

// Serve blocks accepting connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("grpc health listening")
	return s.srv.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains open RPCs. RPCs still open
// after the stop timeout are cut off.
func (s *Server) Stop() {
	s.health.Shutdown()
	timeout := s.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		s.log.Warn().Dur("timeout", timeout).Msg("grpc graceful stop timed out, closing connections")
		s.srv.Stop()
		<-done
	}
}
