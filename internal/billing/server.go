package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const StatusActive = "ACTIVE"

// AccountService is the server side of BillingService.
type AccountService interface {
	CreateBillingAccount(ctx context.Context, req *BillingRequest) (*BillingResponse, error)
}

// Server opens an account per request and returns it as ACTIVE. It keeps no
// state; the account id is freshly generated.
type Server struct {
	log zerolog.Logger
}

func NewServer(log zerolog.Logger) *Server {
	return &Server{log: log.With().Str("component", "billing-server").Logger()}
}

func (s *Server) CreateBillingAccount(ctx context.Context, req *BillingRequest) (*BillingResponse, error) {
	if req.PatientID == "" {
		return nil, status.Error(codes.InvalidArgument, "patientId required")
	}

	resp := &BillingResponse{AccountID: uuid.New().String(), Status: StatusActive}
	s.log.Info().
		Str("patient_id", req.PatientID).
		Str("name", req.Name).
		Str("email", req.Email).
		Str("account_id", resp.AccountID).
		Msg("billing account opened")
	return resp, nil
}

// ServerOptions are required on any grpc.Server that registers AccountService.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.ForceServerCodec(Codec{})}
}

func Register(s grpc.ServiceRegistrar, svc AccountService) {
	s.RegisterService(&serviceDesc, svc)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "BillingService",
	HandlerType: (*AccountService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateBillingAccount", Handler: createBillingAccountHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "billing_service.proto",
}

func createBillingAccountHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &BillingRequest{}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountService).CreateBillingAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateBillingAccountMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountService).CreateBillingAccount(ctx, req.(*BillingRequest))
	}
	return interceptor(ctx, in, info, handler)
}
