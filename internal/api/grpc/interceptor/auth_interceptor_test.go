package interceptor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/security"
)

func incoming(token string) context.Context {
	if token == "" {
		return metadata.NewIncomingContext(context.Background(), metadata.MD{})
	}
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}

func TestAuthInterceptor_Unary(t *testing.T) {
	tm := security.NewTokenManager("secret", time.Hour, time.Hour)
	unary := NewAuthInterceptor(tm).Unary()

	customerToken, err := tm.GenerateAccessToken(domain.Customer(3))
	require.NoError(t, err)
	shopToken, err := tm.GenerateAccessToken(domain.Shop(4))
	require.NoError(t, err)

	var seen domain.Actor
	handler := func(ctx context.Context, req any) (any, error) {
		seen, _ = security.ActorFromContext(ctx)
		return "ok", nil
	}
	call := func(ctx context.Context, method string) error {
		_, err := unary(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, handler)
		return err
	}

	t.Run("PublicSkipsAuth", func(t *testing.T) {
		require.NoError(t, call(context.Background(), "/grpc.health.v1.Health/Check"))
	})

	t.Run("MissingMetadata", func(t *testing.T) {
		err := call(context.Background(), "RentalService/GetRental")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("MissingToken", func(t *testing.T) {
		err := call(incoming(""), "RentalService/GetRental")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("InvalidToken", func(t *testing.T) {
		err := call(incoming("garbage"), "RentalService/GetRental")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("WrongRole", func(t *testing.T) {
		err := call(incoming(customerToken), "RentalService/DecideRental")
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("InjectsActor", func(t *testing.T) {
		require.NoError(t, call(incoming(shopToken), "RentalService/DecideRental"))
		assert.Equal(t, domain.Shop(4), seen)
	})
}

func TestLogging_RecoversPanic(t *testing.T) {
	unary := Logging()
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Panic"}

	resp, err := unary(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))

	_, err = unary(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, errors.New("plain")
	})
	assert.Equal(t, codes.Unknown, status.Code(err))
}
