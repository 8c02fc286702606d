package rcapb

import (
	"context"

	"google.golang.org/grpc"
)

// InferenceServiceServer is the server API for InferenceService, hand
// written in the shape protoc-gen-go-grpc would otherwise generate.
type InferenceServiceServer interface {
	GetLastCauseResult(context.Context, *GetLastCauseResultRequest) (*CauseResultResponse, error)
}

// UnimplementedInferenceServiceServer embeds into concrete servers for
// forward-compatible method additions, matching generated-code
// convention.
type UnimplementedInferenceServiceServer struct{}

func (UnimplementedInferenceServiceServer) GetLastCauseResult(context.Context, *GetLastCauseResultRequest) (*CauseResultResponse, error) {
	return nil, errUnimplemented("GetLastCauseResult")
}

// InferenceServiceClient is the client API for InferenceService.
type InferenceServiceClient interface {
	GetLastCauseResult(ctx context.Context, in *GetLastCauseResultRequest, opts ...grpc.CallOption) (*CauseResultResponse, error)
}

type inferenceServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewInferenceServiceClient constructs a client stub over cc, always
// negotiating the json codec this package registers.
func NewInferenceServiceClient(cc grpc.ClientConnInterface) InferenceServiceClient {
	return &inferenceServiceClient{cc: cc}
}

func (c *inferenceServiceClient) GetLastCauseResult(ctx context.Context, in *GetLastCauseResultRequest, opts ...grpc.CallOption) (*CauseResultResponse, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(CauseResultResponse)
	if err := c.cc.Invoke(ctx, "/mirador_rca.v1.InferenceService/GetLastCauseResult", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _InferenceService_GetLastCauseResult_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetLastCauseResultRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InferenceServiceServer).GetLastCauseResult(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/mirador_rca.v1.InferenceService/GetLastCauseResult",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InferenceServiceServer).GetLastCauseResult(ctx, req.(*GetLastCauseResultRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// InferenceService_ServiceDesc is the grpc.ServiceDesc for InferenceService.
var InferenceService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "mirador_rca.v1.InferenceService",
	HandlerType: (*InferenceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetLastCauseResult",
			Handler:    _InferenceService_GetLastCauseResult_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rcapb/inference.proto",
}

// RegisterInferenceServiceServer registers srv on s.
func RegisterInferenceServiceServer(s grpc.ServiceRegistrar, srv InferenceServiceServer) {
	s.RegisterService(&InferenceService_ServiceDesc, srv)
}
