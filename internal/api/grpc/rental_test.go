package grpc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	grpcapi "github.com/NinePK/back-car/internal/api/grpc"
	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/notify"
	"github.com/NinePK/back-car/internal/repository/memory"
	"github.com/NinePK/back-car/internal/security"
	"github.com/NinePK/back-car/internal/service"
	"github.com/NinePK/back-car/internal/utils"
)

var (
	customer = domain.Customer(3)
	shop     = domain.Shop(4)
)

type rentalClient struct {
	t      *testing.T
	conn   *grpc.ClientConn
	tokens security.TokenManager
}

func newRentalClient(t *testing.T) (*rentalClient, service.RentalService, service.PaymentService, *domain.Vehicle) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	v := &domain.Vehicle{
		ShopID:        shop.ID,
		Brand:         "Mazda",
		Model:         "2",
		DailyRate:     decimal.NewFromInt(500),
		InsuranceRate: decimal.NewFromInt(50),
	}
	require.NoError(t, store.Vehicles().Create(ctx, v))

	rentals := service.NewRentalService(store, notify.Log(), nil, utils.OverridePolicy{TolerancePercent: decimal.NewFromInt(10)})
	payments := service.NewPaymentService(store, notify.Log())
	tokens := security.NewTokenManager("test-secret", time.Hour, 24*time.Hour)

	srv, _ := grpcapi.NewServer(tokens, grpcapi.NewRentalHandler(rentals, payments))
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &rentalClient{t: t, conn: conn, tokens: tokens}, rentals, payments, v
}

func (c *rentalClient) call(actor *domain.Actor, method string, req map[string]any) (*structpb.Struct, error) {
	c.t.Helper()
	in, err := structpb.NewStruct(req)
	require.NoError(c.t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if actor != nil {
		token, err := c.tokens.GenerateAccessToken(*actor)
		require.NoError(c.t, err)
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}

	out := new(structpb.Struct)
	err = c.conn.Invoke(ctx, "/"+grpcapi.ServiceName+"/"+method, in, out)
	return out, err
}

func code(err error) codes.Code {
	return status.Code(err)
}

func TestRentalReadService(t *testing.T) {
	client, rentals, payments, v := newRentalClient(t)
	ctx := context.Background()

	rt, err := rentals.CreateBooking(ctx, customer, service.BookingRequest{
		VehicleID: v.ID, StartDate: "2024-01-01", EndDate: "2024-01-03",
	})
	require.NoError(t, err)
	id := float64(rt.ID)

	t.Run("RequiresToken", func(t *testing.T) {
		_, err := client.call(nil, "GetRental", map[string]any{"rental_id": id})
		assert.Equal(t, codes.Unauthenticated, code(err))
	})

	t.Run("HealthIsPublic", func(t *testing.T) {
		_, err := healthpb.NewHealthClient(client.conn).Check(ctx, &healthpb.HealthCheckRequest{})
		assert.NoError(t, err)
	})

	t.Run("GetRental", func(t *testing.T) {
		out, err := client.call(&customer, "GetRental", map[string]any{"rental_id": id})
		require.NoError(t, err)
		assert.Equal(t, id, out.Fields["id"].GetNumberValue())
		assert.Equal(t, "pending", out.Fields["rental_status"].GetStringValue())
		assert.Equal(t, "1100", out.Fields["total_amount"].GetStringValue())

		other := domain.Customer(77)
		_, err = client.call(&other, "GetRental", map[string]any{"rental_id": id})
		assert.Equal(t, codes.NotFound, code(err))

		_, err = client.call(&customer, "GetRental", map[string]any{})
		assert.Equal(t, codes.InvalidArgument, code(err))

		_, err = client.call(&customer, "GetRental", map[string]any{"rental_id": 1.5})
		assert.Equal(t, codes.InvalidArgument, code(err))
	})

	t.Run("ListRentals", func(t *testing.T) {
		out, err := client.call(&shop, "ListRentals", map[string]any{"status": "pending", "page": 1, "page_size": 10})
		require.NoError(t, err)
		assert.Equal(t, float64(1), out.Fields["total"].GetNumberValue())
		assert.Len(t, out.Fields["items"].GetListValue().GetValues(), 1)

		out, err = client.call(&customer, "ListRentals", map[string]any{"page": 1e12, "page_size": 100})
		require.NoError(t, err)
		assert.Equal(t, float64(1), out.Fields["total"].GetNumberValue())
		assert.Empty(t, out.Fields["items"].GetListValue().GetValues())

		_, err = client.call(&customer, "ListRentals", map[string]any{"status": "lost"})
		assert.Equal(t, codes.InvalidArgument, code(err))
	})

	t.Run("GetHistory", func(t *testing.T) {
		out, err := client.call(&shop, "GetHistory", map[string]any{"rental_id": id})
		require.NoError(t, err)
		items := out.Fields["items"].GetListValue().GetValues()
		require.Len(t, items, 1)
		assert.Equal(t, "book", items[0].GetStructValue().Fields["event"].GetStringValue())
	})

	t.Run("ListPendingPaymentsNeedsShopRole", func(t *testing.T) {
		_, err := client.call(&customer, "ListPendingPayments", nil)
		assert.Equal(t, codes.PermissionDenied, code(err))

		_, err = payments.SubmitProof(ctx, customer, rt.ID, service.ProofRequest{ProofRef: "slips/7.png"})
		require.NoError(t, err)

		out, err := client.call(&shop, "ListPendingPayments", nil)
		require.NoError(t, err)
		items := out.Fields["items"].GetListValue().GetValues()
		require.Len(t, items, 1)
		assert.Equal(t, id, items[0].GetStructValue().Fields["rental_id"].GetNumberValue())
		assert.Equal(t, "pending_verification", items[0].GetStructValue().Fields["payment_status"].GetStringValue())
	})
}
