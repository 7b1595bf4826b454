// Package grpcserver exposes read-only catalog lookups to internal callers. Messages are
// google.protobuf.Struct so no generated stubs are needed.
package grpcserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/md-rashed-zaman/bookly/libs/grpcx"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName        = "bookly.catalog.v1.Catalog"
	MethodListServices = "/" + ServiceName + "/ListServices"
	MethodListStaff    = "/" + ServiceName + "/ListStaff"
)

// Catalog is the read side the server needs; *catalog.Catalog satisfies it.
type Catalog interface {
	ListServices(ctx context.Context, businessID string, activeOnly bool) ([]model.Service, error)
	ListStaff(ctx context.Context, businessID string, activeOnly bool) ([]model.Staff, error)
}

type server struct {
	catalog Catalog
}

// NewServer builds a gRPC server with tracing, request ids, call logging and the health
// service, and registers the catalog service on it.
func NewServer(logger *slog.Logger, c Catalog) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLoggingInterceptor(logger),
		),
	)
	Register(srv, c)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

func Register(s grpc.ServiceRegistrar, c Catalog) {
	s.RegisterService(&serviceDesc, &server{catalog: c})
}

type catalogServer interface {
	listServices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	listStaff(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*catalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListServices", Handler: unary(MethodListServices, catalogServer.listServices)},
		{MethodName: "ListStaff", Handler: unary(MethodListStaff, catalogServer.listStaff)},
	},
	Metadata: "bookly/catalog/v1/catalog.proto",
}

func unary(fullMethod string, call func(catalogServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(catalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(catalogServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func (s *server) listServices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	businessID, activeOnly, err := readRequest(req)
	if err != nil {
		return nil, err
	}
	services, err := s.catalog.ListServices(ctx, businessID, activeOnly)
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, 0, len(services))
	for _, svc := range services {
		items = append(items, map[string]any{
			"id":               svc.ID,
			"name":             svc.Name,
			"description":      svc.Description,
			"price":            svc.Price,
			"duration_minutes": svc.DurationMinutes,
			"active":           svc.Active,
		})
	}
	return response("services", items)
}

func (s *server) listStaff(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	businessID, activeOnly, err := readRequest(req)
	if err != nil {
		return nil, err
	}
	staff, err := s.catalog.ListStaff(ctx, businessID, activeOnly)
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, 0, len(staff))
	for _, st := range staff {
		items = append(items, map[string]any{
			"id":     st.ID,
			"name":   st.Name,
			"role":   st.Role,
			"active": st.Active,
		})
	}
	return response("staff", items)
}

func readRequest(req *structpb.Struct) (string, bool, error) {
	fields := req.GetFields()
	businessID := fields["business_id"].GetStringValue()
	if businessID == "" {
		return "", false, status.Error(codes.InvalidArgument, "business_id is required")
	}
	return businessID, fields["active_only"].GetBoolValue(), nil
}

func response(key string, items []any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]any{key: items})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func toStatus(err error) error {
	var nf *errs.NotFoundError
	var v *errs.ValidationError
	switch {
	case errors.As(err, &nf):
		return status.Error(codes.NotFound, nf.Error())
	case errors.As(err, &v):
		return status.Error(codes.InvalidArgument, v.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
