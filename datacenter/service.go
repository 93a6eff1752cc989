package datacenter

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "remotescan.datacenter.Datacenter"

// DatacenterServer executes statements on behalf of remote page sources.
type DatacenterServer interface {
	ListTables(context.Context, *ListTablesRequest) (*ListTablesResponse, error)
	Describe(context.Context, *DescribeRequest) (*DescribeResponse, error)
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	Fetch(context.Context, *FetchRequest) (*FetchResponse, error)
	ApplyFilters(context.Context, *ApplyFiltersRequest) (*ApplyFiltersResponse, error)
	Cancel(context.Context, *CancelRequest) (*CancelResponse, error)
}

func RegisterDatacenterServer(s grpc.ServiceRegistrar, srv DatacenterServer) {
	s.RegisterService(&serviceDesc, srv)
}

// unaryHandler adapts a typed method of DatacenterServer to a grpc method handler.
func unaryHandler[Req, Res any](method string, call func(DatacenterServer, context.Context, *Req) (*Res, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DatacenterServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(DatacenterServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DatacenterServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ListTables", DatacenterServer.ListTables),
		unaryHandler("Describe", DatacenterServer.Describe),
		unaryHandler("Submit", DatacenterServer.Submit),
		unaryHandler("Fetch", DatacenterServer.Fetch),
		unaryHandler("ApplyFilters", DatacenterServer.ApplyFilters),
		unaryHandler("Cancel", DatacenterServer.Cancel),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "datacenter",
}

type datacenterClient struct {
	cc grpc.ClientConnInterface
}

func invoke[Req, Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts ...grpc.CallOption) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *datacenterClient) ListTables(ctx context.Context, in *ListTablesRequest, opts ...grpc.CallOption) (*ListTablesResponse, error) {
	return invoke[ListTablesRequest, ListTablesResponse](ctx, c.cc, "ListTables", in, opts...)
}

func (c *datacenterClient) Describe(ctx context.Context, in *DescribeRequest, opts ...grpc.CallOption) (*DescribeResponse, error) {
	return invoke[DescribeRequest, DescribeResponse](ctx, c.cc, "Describe", in, opts...)
}

func (c *datacenterClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	return invoke[SubmitRequest, SubmitResponse](ctx, c.cc, "Submit", in, opts...)
}

func (c *datacenterClient) Fetch(ctx context.Context, in *FetchRequest, opts ...grpc.CallOption) (*FetchResponse, error) {
	return invoke[FetchRequest, FetchResponse](ctx, c.cc, "Fetch", in, opts...)
}

func (c *datacenterClient) ApplyFilters(ctx context.Context, in *ApplyFiltersRequest, opts ...grpc.CallOption) (*ApplyFiltersResponse, error) {
	return invoke[ApplyFiltersRequest, ApplyFiltersResponse](ctx, c.cc, "ApplyFilters", in, opts...)
}

func (c *datacenterClient) Cancel(ctx context.Context, in *CancelRequest, opts ...grpc.CallOption) (*CancelResponse, error) {
	return invoke[CancelRequest, CancelResponse](ctx, c.cc, "Cancel", in, opts...)
}
