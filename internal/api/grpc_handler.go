package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront-service/internal/cart"
	"storefront-service/internal/domain"
)

// CartServiceName is the fully qualified gRPC service name.
const CartServiceName = "storefront.v1.CartService"

// CartServiceServer exposes a session's cart over gRPC. Requests and responses
// are google.protobuf.Struct values carrying the same JSON shapes as the HTTP API;
// every request names its session with "session_id".
type CartServiceServer interface {
	GetCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddToCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveFromCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ClearCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// GRPCHandler implements CartServiceServer on top of the per-session cart stores.
type GRPCHandler struct {
	carts *cart.Sessions
	log   logrus.FieldLogger
}

func NewGRPCHandler(carts *cart.Sessions, log logrus.FieldLogger) *GRPCHandler {
	return &GRPCHandler{carts: carts, log: log}
}

// RegisterCartServiceServer registers h with s.
func RegisterCartServiceServer(s grpc.ServiceRegistrar, h CartServiceServer) {
	s.RegisterService(&cartServiceDesc, h)
}

// --- Helper: Error Mapping ---
func mapCartErrorToGrpcStatus(err error) error {
	switch {
	case errors.Is(err, cart.ErrMissingSlug), errors.Is(err, cart.ErrInvalidQuantity):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, cart.ErrItemNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, cart.ErrVariationTaken):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, cart.ErrNotLoaded):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Errorf(codes.Internal, "cart operation failed: %v", err)
	}
}

func (h *GRPCHandler) storeFor(ctx context.Context, req *structpb.Struct) (*cart.Store, error) {
	sid := req.GetFields()["session_id"].GetStringValue()
	if sid == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	st, err := h.carts.Get(ctx, sid)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "load cart: %v", err)
	}
	return st, nil
}

// snapshotToStruct converts a snapshot through its JSON form so field names
// match the HTTP API.
func snapshotToStruct(snap cart.Snapshot) (*structpb.Struct, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode cart: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode cart: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode cart: %v", err)
	}
	return out, nil
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := h.storeFor(ctx, req)
	if err != nil {
		return nil, err
	}
	return snapshotToStruct(c.Snapshot())
}

// AddToCart expects "product" (a product object), and optional "quantity" and "variation".
func (h *GRPCHandler) AddToCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := h.storeFor(ctx, req)
	if err != nil {
		return nil, err
	}
	fields := req.GetFields()

	var product domain.Product
	if pv := fields["product"].GetStructValue(); pv != nil {
		raw, err := pv.MarshalJSON()
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid product: %v", err)
		}
		if err := json.Unmarshal(raw, &product); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid product: %v", err)
		}
	}
	quantity := 1
	if qv, ok := fields["quantity"]; ok {
		quantity = int(qv.GetNumberValue())
	}

	if err := c.AddToCart(ctx, product, quantity, fields["variation"].GetStringValue()); err != nil {
		h.log.WithError(err).WithField("slug", product.Slug).Warn("gRPC AddToCart rejected")
		return nil, mapCartErrorToGrpcStatus(err)
	}
	return snapshotToStruct(c.Snapshot())
}

// RemoveFromCart expects "slug". With "variation" only that line is removed.
func (h *GRPCHandler) RemoveFromCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := h.storeFor(ctx, req)
	if err != nil {
		return nil, err
	}
	fields := req.GetFields()
	slug := fields["slug"].GetStringValue()
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug is required")
	}

	if v, ok := fields["variation"]; ok {
		err = c.RemoveVariation(ctx, slug, v.GetStringValue())
	} else {
		err = c.RemoveFromCart(ctx, slug)
	}
	if err != nil {
		return nil, mapCartErrorToGrpcStatus(err)
	}
	return snapshotToStruct(c.Snapshot())
}

func (h *GRPCHandler) ClearCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := h.storeFor(ctx, req)
	if err != nil {
		return nil, err
	}
	c.ClearCart(ctx)
	return snapshotToStruct(c.Snapshot())
}

func cartUnaryHandler(method string, call func(CartServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CartServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + CartServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CartServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var cartServiceDesc = grpc.ServiceDesc{
	ServiceName: CartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		cartUnaryHandler("GetCart", CartServiceServer.GetCart),
		cartUnaryHandler("AddToCart", CartServiceServer.AddToCart),
		cartUnaryHandler("RemoveFromCart", CartServiceServer.RemoveFromCart),
		cartUnaryHandler("ClearCart", CartServiceServer.ClearCart),
	},
	Streams: []grpc.StreamDesc{},
}
