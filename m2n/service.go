/*
Copyright (C) 2013-2014 Regents of the University of Minnesota.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package m2n

import (
	"context"

	"google.golang.org/grpc"
)

// This file is the hand-written equivalent of what protoc-gen-go would
// emit for a single bidirectional-streaming RPC, Exchange(stream
// Envelope) returns (stream Envelope). Writing it directly instead of
// compiling a .proto keeps the transport's wire type a plain Go struct
// (see codec.go) while still running over *grpc.Server / *grpc.ClientConn,
// the same library inmaputil/cloud.go dials for its job-submission RPC.

// TransportServer is implemented by the participant process accepting
// the connecting peer's stream.
type TransportServer interface {
	Exchange(Transport_ExchangeServer) error
}

// TransportClient is implemented by the participant process that
// dials out.
type TransportClient interface {
	Exchange(ctx context.Context, opts ...grpc.CallOption) (Transport_ExchangeClient, error)
}

// Transport_ExchangeServer is the server-side view of one Exchange
// stream.
type Transport_ExchangeServer interface {
	Send(*Envelope) error
	Recv() (*Envelope, error)
	grpc.ServerStream
}

// Transport_ExchangeClient is the client-side view of one Exchange
// stream.
type Transport_ExchangeClient interface {
	Send(*Envelope) error
	Recv() (*Envelope, error)
	grpc.ClientStream
}

type transportExchangeServer struct{ grpc.ServerStream }

func (x *transportExchangeServer) Send(m *Envelope) error { return x.ServerStream.SendMsg(m) }

func (x *transportExchangeServer) Recv() (*Envelope, error) {
	m := new(Envelope)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type transportExchangeClient struct{ grpc.ClientStream }

func (x *transportExchangeClient) Send(m *Envelope) error { return x.ClientStream.SendMsg(m) }

func (x *transportExchangeClient) Recv() (*Envelope, error) {
	m := new(Envelope)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type transportClient struct{ cc *grpc.ClientConn }

// NewTransportClient wraps an established connection for Exchange calls.
func NewTransportClient(cc *grpc.ClientConn) TransportClient {
	return &transportClient{cc: cc}
}

func (c *transportClient) Exchange(ctx context.Context, opts ...grpc.CallOption) (Transport_ExchangeClient, error) {
	stream, err := c.cc.NewStream(ctx, &transportServiceDesc.Streams[0], "/cplcore.m2n.Transport/Exchange", opts...)
	if err != nil {
		return nil, err
	}
	return &transportExchangeClient{stream}, nil
}

// RegisterTransportServer attaches srv to s under the Transport service
// name.
func RegisterTransportServer(s *grpc.Server, srv TransportServer) {
	s.RegisterService(&transportServiceDesc, srv)
}

func transportExchangeHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(TransportServer).Exchange(&transportExchangeServer{stream})
}

var transportServiceDesc = grpc.ServiceDesc{
	ServiceName: "cplcore.m2n.Transport",
	HandlerType: (*TransportServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Exchange",
			Handler:       transportExchangeHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "m2n.proto",
}
