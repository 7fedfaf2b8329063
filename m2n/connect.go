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
	"net"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/spatialmodel/cplcore/cplerror"
)

// Dial connects to a peer participant's M2N server at addr, retrying
// with exponential backoff: the two participant processes in a
// coupling are started independently and neither is guaranteed to have
// its listener up first. maxElapsed bounds the whole retry sequence; a
// caller that never wants to give up can pass 0, which backoff treats
// as no limit.
func Dial(ctx context.Context, addr string, maxElapsed time.Duration) (*Channel, *grpc.ClientConn, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	var conn *grpc.ClientConn
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		c, dialErr := grpc.DialContext(ctx, addr, grpc.WithInsecure(), grpc.WithCodec(gobCodec{}), grpc.WithBlock())
		if dialErr != nil {
			logrus.WithError(dialErr).WithField("attempt", attempt).Warn("m2n: connection attempt failed, retrying")
			return dialErr
		}
		conn = c
		return nil
	}, b)
	if err != nil {
		return nil, nil, cplerror.Wrap(cplerror.TransportFailure, cplerror.Context{}, err, "m2n: failed to connect to %s", addr)
	}

	stream, err := NewTransportClient(conn).Exchange(ctx)
	if err != nil {
		conn.Close()
		return nil, nil, cplerror.Wrap(cplerror.TransportFailure, cplerror.Context{}, err, "m2n: failed to open exchange stream to %s", addr)
	}
	return NewChannel(stream), conn, nil
}

// Listener accepts a single incoming Exchange stream and hands back a
// Channel once the peer has connected. Coupling is strictly
// point-to-point per M2N connection, so one accepted stream is enough.
type Listener struct {
	srv      *grpc.Server
	accepted chan *Channel
}

// Listen starts a server on addr and returns a Listener whose Accept
// blocks until the peer dials in.
func Listen(addr string) (*Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, cplerror.Wrap(cplerror.TransportFailure, cplerror.Context{}, err, "m2n: failed to listen on %s", addr)
	}
	l := &Listener{
		srv:      grpc.NewServer(grpc.CustomCodec(gobCodec{})),
		accepted: make(chan *Channel, 1),
	}
	RegisterTransportServer(l.srv, &transportServer{accepted: l.accepted})
	go l.srv.Serve(lis)
	return l, nil
}

// Accept blocks until the peer's Exchange stream has connected.
func (l *Listener) Accept(ctx context.Context) (*Channel, error) {
	select {
	case ch := <-l.accepted:
		return ch, nil
	case <-ctx.Done():
		return nil, cplerror.Wrap(cplerror.TransportFailure, cplerror.Context{}, ctx.Err(), "m2n: accept cancelled")
	}
}

// Close stops the gRPC server.
func (l *Listener) Close() { l.srv.GracefulStop() }

type transportServer struct {
	accepted chan *Channel
}

func (s *transportServer) Exchange(stream Transport_ExchangeServer) error {
	ch := NewChannel(stream)
	s.accepted <- ch
	<-ch.Closed()
	return nil
}
