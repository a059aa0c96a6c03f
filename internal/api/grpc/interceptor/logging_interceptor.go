package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/NinePK/back-car/internal/logger"
)

// Logging logs every unary call with its status code. Panics in the handler
// are turned into codes.Internal.
func Logging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "gRPC handler panicked", "method", info.FullMethod, "panic", r)
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			log := logger.DebugContext
			if code != codes.OK {
				log = logger.WarnContext
			}
			log(ctx, "gRPC request", "method", info.FullMethod, "code", code.String(),
				"duration_ms", time.Since(start).Milliseconds())
		}()
		return handler(ctx, req)
	}
}
