package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/security"
	"github.com/NinePK/back-car/internal/service"
)

// RentalReadServer is the read side of the rental engine. Requests and
// responses are google.protobuf.Struct values keyed like the HTTP JSON bodies.
type RentalReadServer interface {
	GetRental(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRentals(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPendingPayments(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type readMethod func(RentalReadServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call readMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RentalReadServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RentalReadServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var rentalReadServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RentalReadServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetRental", Handler: unaryHandler("GetRental", RentalReadServer.GetRental)},
		{MethodName: "ListRentals", Handler: unaryHandler("ListRentals", RentalReadServer.ListRentals)},
		{MethodName: "GetHistory", Handler: unaryHandler("GetHistory", RentalReadServer.GetHistory)},
		{MethodName: "ListPendingPayments", Handler: unaryHandler("ListPendingPayments", RentalReadServer.ListPendingPayments)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterRentalReadServer registers srv under ServiceName.
func RegisterRentalReadServer(s grpc.ServiceRegistrar, srv RentalReadServer) {
	s.RegisterService(&rentalReadServiceDesc, srv)
}

type RentalHandler struct {
	rentalSvc  service.RentalService
	paymentSvc service.PaymentService
}

func NewRentalHandler(rentalSvc service.RentalService, paymentSvc service.PaymentService) *RentalHandler {
	return &RentalHandler{rentalSvc: rentalSvc, paymentSvc: paymentSvc}
}

func (h *RentalHandler) GetRental(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := idField(req, "rental_id")
	if err != nil {
		return nil, err
	}
	rt, err := h.rentalSvc.GetRental(ctx, actor, id)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return toStruct(rt)
}

func (h *RentalHandler) ListRentals(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	page, pageSize := int32Field(req, "page"), int32Field(req, "page_size")
	rentals, total, err := h.rentalSvc.ListRentals(ctx, actor, req.GetFields()["status"].GetStringValue(), page, pageSize)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return toStruct(struct {
		Items []domain.Rental `json:"items"`
		Total int32           `json:"total"`
	}{Items: rentals, Total: total})
}

func (h *RentalHandler) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := idField(req, "rental_id")
	if err != nil {
		return nil, err
	}
	history, err := h.rentalSvc.GetHistory(ctx, actor, id)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return toStruct(struct {
		Items []domain.Transition `json:"items"`
	}{Items: history})
}

func (h *RentalHandler) ListPendingPayments(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := h.paymentSvc.ListPendingPayments(ctx, actor)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return toStruct(struct {
		Items []domain.Payment `json:"items"`
	}{Items: payments})
}

func actorFromContext(ctx context.Context) (domain.Actor, error) {
	actor, ok := security.ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, status.Error(codes.Unauthenticated, "actor is not provided")
	}
	return actor, nil
}

func idField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	n := v.GetNumberValue()
	if !ok || n < 1 || n != math.Trunc(n) || n > 1<<53 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", name)
	}
	return int64(n), nil
}

// int32Field reads an optional paging number. Missing or fractional values
// read as 0 and are defaulted by the service.
func int32Field(req *structpb.Struct, name string) int32 {
	n := req.GetFields()[name].GetNumberValue()
	switch {
	case n != math.Trunc(n):
		return 0
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	}
	return int32(n)
}

// toStruct converts v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrVehicleBusy):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrVehicleInUse),
		errors.Is(err, domain.ErrReferentialConflict),
		errors.Is(err, domain.ErrConcurrentUpdate):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	logger.ErrorContext(ctx, "gRPC request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
