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

// pipeStream is an in-process stream: two pipeStreams wired together by
// Pipe exchange Envelopes over plain Go channels instead of a gRPC
// connection, the same relationship net.Pipe bears to a real socket.
type pipeStream struct {
	out  chan<- *Envelope
	in   <-chan *Envelope
	done chan struct{}
}

func (s *pipeStream) Send(env *Envelope) error {
	select {
	case s.out <- env:
		return nil
	case <-s.done:
		return errPipeClosed
	}
}

func (s *pipeStream) Recv() (*Envelope, error) {
	select {
	case env, ok := <-s.in:
		if !ok {
			return nil, errPipeClosed
		}
		return env, nil
	case <-s.done:
		return nil, errPipeClosed
	}
}

type pipeError struct{}

func (pipeError) Error() string { return "m2n: pipe closed" }

var errPipeClosed error = pipeError{}

// Pipe returns two connected Channels wired together entirely in-process,
// for tests and single-process couplings that have no need of a real
// network transport between participants.
func Pipe() (a, b *Channel) {
	ab := make(chan *Envelope, 64)
	ba := make(chan *Envelope, 64)
	done := make(chan struct{})
	sa := &pipeStream{out: ab, in: ba, done: done}
	sb := &pipeStream{out: ba, in: ab, done: done}
	return NewChannel(sa), NewChannel(sb)
}
