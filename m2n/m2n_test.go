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
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ctessum/sparse"
)

// dialTestPair connects a client Channel to an in-process server over bufconn,
// so the transport's framing and demultiplexing are exercised without a
// real network listener.
func dialTestPair(t *testing.T) (client, server *Channel, closeAll func()) {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(grpc.CustomCodec(gobCodec{}))
	accepted := make(chan *Channel, 1)
	RegisterTransportServer(srv, &transportServer{accepted: accepted})
	go srv.Serve(lis)

	dialer := func(string, time.Duration) (net.Conn, error) { return lis.Dial() }
	conn, err := grpc.Dial("bufnet", grpc.WithInsecure(), grpc.WithCodec(gobCodec{}), grpc.WithDialer(dialer))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clientStream, err := NewTransportClient(conn).Exchange(ctx)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	client = NewChannel(clientStream)

	select {
	case server = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("server never accepted the stream")
	}

	return client, server, func() {
		conn.Close()
		srv.Stop()
	}
}

func TestChannelRoundTripsAllKinds(t *testing.T) {
	client, server, closeAll := dialTestPair(t)
	defer closeAll()

	if err := client.SendBool(1, 2, true); err != nil {
		t.Fatal(err)
	}
	gotBool, err := server.ReceiveBool(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !gotBool {
		t.Fatalf("ReceiveBool = false, want true")
	}

	want := []float64{1, 2, 3}
	if err := client.SendDouble(1, 3, want); err != nil {
		t.Fatal(err)
	}
	gotDouble, err := server.ReceiveDouble(1, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, w := range want {
		if gotDouble[i] != w {
			t.Fatalf("ReceiveDouble[%d] = %v, want %v", i, gotDouble[i], w)
		}
	}

	block := sparse.ZerosDense(2, 2)
	block.Set(1, 0, 0)
	block.Set(2, 0, 1)
	block.Set(3, 1, 0)
	block.Set(4, 1, 1)
	if err := client.SendBlock(1, 4, block); err != nil {
		t.Fatal(err)
	}
	gotBlock, err := server.ReceiveBlock(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	if gotBlock.Get(1, 1) != 4 {
		t.Fatalf("ReceiveBlock.Get(1,1) = %v, want 4 (Fix must restore indexing after gob)", gotBlock.Get(1, 1))
	}
}

func TestChannelOrdersMultipleFieldsIndependently(t *testing.T) {
	client, server, closeAll := dialTestPair(t)
	defer closeAll()

	// Interleave sends on two different (meshID, dataID) keys; each
	// key's receiver must see its own values in send order regardless
	// of interleaving on the wire.
	for i := 0; i < 5; i++ {
		if err := client.SendDouble(1, 10, []float64{float64(i)}); err != nil {
			t.Fatal(err)
		}
		if err := client.SendDouble(1, 20, []float64{float64(100 + i)}); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 5; i++ {
		v, err := server.ReceiveDouble(1, 10)
		if err != nil {
			t.Fatal(err)
		}
		if v[0] != float64(i) {
			t.Fatalf("field 10 iteration %d = %v, want %v", i, v[0], float64(i))
		}
	}
	for i := 0; i < 5; i++ {
		v, err := server.ReceiveDouble(1, 20)
		if err != nil {
			t.Fatal(err)
		}
		if v[0] != float64(100+i) {
			t.Fatalf("field 20 iteration %d = %v, want %v", i, v[0], float64(100+i))
		}
	}
}

func TestReceiveReportsTransportFailureOnKindMismatch(t *testing.T) {
	client, server, closeAll := dialTestPair(t)
	defer closeAll()

	if err := client.SendBool(1, 1, true); err != nil {
		t.Fatal(err)
	}
	if _, err := server.ReceiveDouble(1, 1); err == nil {
		t.Fatal("expected an error receiving a double where a bool was sent")
	}
}
