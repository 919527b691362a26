package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

const (
	// AdminServiceName is the fully qualified name of the admin service
	AdminServiceName = "checkflow.admin.v1.AdminService"

	ListPendingMethod     = "/" + AdminServiceName + "/ListPending"
	GetPendingCheckMethod = "/" + AdminServiceName + "/GetPendingCheck"
	HealthCheckMethod     = "/grpc.health.v1.Health/Check"
)

// PendingSource is the read side of the pending check registry
type PendingSource interface {
	Snapshot() []domain.Check
	Get(id uuid.UUID) (*domain.Check, error)
}

// BreakerState reports the ledger circuit breaker state, e.g. "closed"
type BreakerState interface {
	State() string
}

// AdminServiceServer is the server API for the admin service
type AdminServiceServer interface {
	ListPending(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	GetPendingCheck(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// Server implements the AdminService gRPC server
type Server struct {
	Registry PendingSource
	Breaker  BreakerState // optional
}

// NewServer creates a new admin server instance
func NewServer(registry PendingSource, breaker BreakerState) *Server {
	return &Server{
		Registry: registry,
		Breaker:  breaker,
	}
}

// ListPending handles the ListPending RPC
func (s *Server) ListPending(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	checks := s.Registry.Snapshot()

	items := make([]interface{}, 0, len(checks))
	for i := range checks {
		items = append(items, checkFields(&checks[i]))
	}

	fields := map[string]interface{}{
		"count":  len(checks),
		"checks": items,
	}
	if s.Breaker != nil {
		fields["ledger_breaker"] = s.Breaker.State()
	}

	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

// GetPendingCheck handles the GetPendingCheck RPC
func (s *Server) GetPendingCheck(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := uuid.Parse(req.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid check id format: %v", err)
	}

	check, err := s.Registry.Get(id)
	if err != nil {
		return nil, mapError(err)
	}

	resp, err := structpb.NewStruct(checkFields(check))
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

func checkFields(check *domain.Check) map[string]interface{} {
	amount1, amount2 := check.Draft.AmountTexts()
	return map[string]interface{}{
		"check_id":     check.ID.String(),
		"recipient":    check.Draft.Recipient.Handle,
		"recipient_id": check.RecipientID(),
		"date":         check.Draft.Date,
		"amount1":      amount1,
		"amount2":      amount2,
		"full_name":    check.Draft.FullName,
		"status":       string(check.Status),
		"issuer_id":    check.IssuerID,
		"created_at":   check.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewGRPCServer builds a gRPC server exposing the admin and health services.
// Every admin call requires token in the authorization metadata; health checks do not.
func NewGRPCServer(admin AdminServiceServer, token string, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts, grpc.UnaryInterceptor(AuthInterceptor(token, HealthCheckMethod)))
	s := grpc.NewServer(opts...)

	RegisterAdminServiceServer(s, admin)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(AdminServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return s, healthServer
}

// RegisterAdminServiceServer registers srv on s
func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv AdminServiceServer) {
	s.RegisterService(&adminServiceDesc, srv)
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListPending",
			Handler:    listPendingHandler,
		},
		{
			MethodName: "GetPendingCheck",
			Handler:    getPendingCheckHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "checkflow/admin/v1/admin.proto",
}

func listPendingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).ListPending(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ListPendingMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServiceServer).ListPending(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getPendingCheckHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).GetPendingCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetPendingCheckMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServiceServer).GetPendingCheck(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// mapError translates domain errors into gRPC status codes
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrCheckNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	default:
		return status.Errorf(codes.Internal, "%s", err.Error())
	}
}
