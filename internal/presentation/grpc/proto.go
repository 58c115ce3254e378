package grpc

// proto.go defines the gRPC server interface for churn.v1.ChurnService.
// Messages are plain structs carried by the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "churn.v1.ChurnService"

// ChurnServiceServer is the server API for ChurnService.
type ChurnServiceServer interface {
	Predict(context.Context, *PredictRequest) (*PredictResponse, error)
	GetRiskSummary(context.Context, *GetRiskSummaryRequest) (*GetRiskSummaryResponse, error)
	ListAtRiskCustomers(context.Context, *ListAtRiskCustomersRequest) (*ListAtRiskCustomersResponse, error)
	EstimateCampaign(context.Context, *EstimateCampaignRequest) (*EstimateCampaignResponse, error)
	GetModelInfo(context.Context, *GetModelInfoRequest) (*GetModelInfoResponse, error)
	mustEmbedUnimplementedChurnServiceServer()
}

// UnimplementedChurnServiceServer provides forward-compatible default implementations.
type UnimplementedChurnServiceServer struct{}

func (UnimplementedChurnServiceServer) Predict(context.Context, *PredictRequest) (*PredictResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Predict not implemented")
}
func (UnimplementedChurnServiceServer) GetRiskSummary(context.Context, *GetRiskSummaryRequest) (*GetRiskSummaryResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetRiskSummary not implemented")
}
func (UnimplementedChurnServiceServer) ListAtRiskCustomers(context.Context, *ListAtRiskCustomersRequest) (*ListAtRiskCustomersResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListAtRiskCustomers not implemented")
}
func (UnimplementedChurnServiceServer) EstimateCampaign(context.Context, *EstimateCampaignRequest) (*EstimateCampaignResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method EstimateCampaign not implemented")
}
func (UnimplementedChurnServiceServer) GetModelInfo(context.Context, *GetModelInfoRequest) (*GetModelInfoResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetModelInfo not implemented")
}
func (UnimplementedChurnServiceServer) mustEmbedUnimplementedChurnServiceServer() {}

// RegisterChurnServiceServer registers the ChurnServiceServer with the gRPC server.
func RegisterChurnServiceServer(s grpclib.ServiceRegistrar, srv ChurnServiceServer) {
	s.RegisterService(&_ChurnService_serviceDesc, srv)
}

var _ChurnService_serviceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChurnServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "Predict", Handler: _ChurnService_Predict_Handler},
		{MethodName: "GetRiskSummary", Handler: _ChurnService_GetRiskSummary_Handler},
		{MethodName: "ListAtRiskCustomers", Handler: _ChurnService_ListAtRiskCustomers_Handler},
		{MethodName: "EstimateCampaign", Handler: _ChurnService_EstimateCampaign_Handler},
		{MethodName: "GetModelInfo", Handler: _ChurnService_GetModelInfo_Handler},
	},
	Streams: []grpclib.StreamDesc{},
}

// methodHandler matches grpclib.MethodDesc.Handler.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error)

// unary decodes the request and routes it through the interceptor chain.
func unary[Req any, Resp any](method string, call func(ChurnServiceServer, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChurnServiceServer), ctx, req)
		}
		info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, r any) (any, error) {
			return call(srv.(ChurnServiceServer), ctx, r.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

var (
	_ChurnService_Predict_Handler             = unary("Predict", ChurnServiceServer.Predict)
	_ChurnService_GetRiskSummary_Handler      = unary("GetRiskSummary", ChurnServiceServer.GetRiskSummary)
	_ChurnService_ListAtRiskCustomers_Handler = unary("ListAtRiskCustomers", ChurnServiceServer.ListAtRiskCustomers)
	_ChurnService_EstimateCampaign_Handler    = unary("EstimateCampaign", ChurnServiceServer.EstimateCampaign)
	_ChurnService_GetModelInfo_Handler        = unary("GetModelInfo", ChurnServiceServer.GetModelInfo)
)
