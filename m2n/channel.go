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
	"sync"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/cplcore/cplerror"
)

// stream is the common Send/Recv contract Transport_ExchangeClient and
// Transport_ExchangeServer both satisfy, so Channel can wrap either side
// of the connection identically.
type stream interface {
	Send(*Envelope) error
	Recv() (*Envelope, error)
}

type key struct{ meshID, dataID int }

// Channel is the Transport implementation: one Exchange stream,
// demultiplexed into an ordered inbox per (meshID, dataID) so a reader
// waiting on one field is never blocked behind, or reordered by, a
// different field arriving on the same stream.
type Channel struct {
	s stream

	sendMu sync.Mutex

	mu      sync.Mutex
	inbox   map[key]chan *Envelope
	recvErr error
	done    chan struct{}
}

// NewChannel starts demultiplexing s in the background and returns a
// Channel ready for Send*/Receive* calls.
func NewChannel(s stream) *Channel {
	c := &Channel{
		s:     s,
		inbox: make(map[key]chan *Envelope),
		done:  make(chan struct{}),
	}
	go c.recvLoop()
	return c
}

func (c *Channel) recvLoop() {
	for {
		env, err := c.s.Recv()
		if err != nil {
			c.mu.Lock()
			c.recvErr = err
			for _, ch := range c.inbox {
				close(ch)
			}
			c.mu.Unlock()
			close(c.done)
			return
		}
		c.inboxFor(key{env.MeshID, env.DataID}) <- env
	}
}

func (c *Channel) inboxFor(k key) chan *Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.inbox[k]
	if !ok {
		ch = make(chan *Envelope, 64)
		c.inbox[k] = ch
	}
	return ch
}

func (c *Channel) send(env *Envelope) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.s.Send(env); err != nil {
		return cplerror.Wrap(cplerror.TransportFailure, cplerror.Context{}, err, "m2n: send failed for mesh %d data %d", env.MeshID, env.DataID)
	}
	return nil
}

// SendBool sends a single boolean value for (meshID, dataID).
func (c *Channel) SendBool(meshID, dataID int, v bool) error {
	return c.send(&Envelope{MeshID: meshID, DataID: dataID, Kind: KindBool, Bool: v})
}

// SendDouble sends a scalar/vector value for (meshID, dataID).
func (c *Channel) SendDouble(meshID, dataID int, v []float64) error {
	return c.send(&Envelope{MeshID: meshID, DataID: dataID, Kind: KindDouble, Doubles: append([]float64(nil), v...)})
}

// SendBlock sends a dense block value for (meshID, dataID).
func (c *Channel) SendBlock(meshID, dataID int, v *sparse.DenseArray) error {
	return c.send(&Envelope{MeshID: meshID, DataID: dataID, Kind: KindBlock, Block: v})
}

func (c *Channel) receive(meshID, dataID int, want Kind) (*Envelope, error) {
	ch := c.inboxFor(key{meshID, dataID})
	env, ok := <-ch
	if !ok {
		c.mu.Lock()
		cause := c.recvErr
		c.mu.Unlock()
		if cause == nil {
			return nil, cplerror.New(cplerror.TransportFailure, cplerror.Context{}, "m2n: channel closed for mesh %d data %d", meshID, dataID)
		}
		return nil, cplerror.Wrap(cplerror.TransportFailure, cplerror.Context{}, cause, "m2n: receive failed for mesh %d data %d", meshID, dataID)
	}
	if env.Kind != want {
		return nil, cplerror.New(cplerror.TransportFailure, cplerror.Context{}, "m2n: expected message kind %d, got %d for mesh %d data %d", want, env.Kind, meshID, dataID)
	}
	return env, nil
}

// ReceiveBool blocks until a boolean value is available for (meshID, dataID).
func (c *Channel) ReceiveBool(meshID, dataID int) (bool, error) {
	env, err := c.receive(meshID, dataID, KindBool)
	if err != nil {
		return false, err
	}
	return env.Bool, nil
}

// ReceiveDouble blocks until a scalar/vector value is available for (meshID, dataID).
func (c *Channel) ReceiveDouble(meshID, dataID int) ([]float64, error) {
	env, err := c.receive(meshID, dataID, KindDouble)
	if err != nil {
		return nil, err
	}
	return env.Doubles, nil
}

// ReceiveBlock blocks until a dense block value is available for (meshID,
// dataID). Fix restores the fields gob could not carry across the wire.
func (c *Channel) ReceiveBlock(meshID, dataID int) (*sparse.DenseArray, error) {
	env, err := c.receive(meshID, dataID, KindBlock)
	if err != nil {
		return nil, err
	}
	env.Block.Fix()
	return env.Block, nil
}

// Closed reports whether the underlying stream has ended.
func (c *Channel) Closed() <-chan struct{} { return c.done }
