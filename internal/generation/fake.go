package generation

import (
	"context"
	"sync"
)

// FakeBackend replays scripted fragments and records every request. Tests of the packages that
// drive a Generator use it in place of a provider.
type FakeBackend struct {
	Fragments []string
	// OpenErr fails Stream itself; StreamErr ends the stream after all fragments.
	OpenErr   error
	StreamErr error

	mu    sync.Mutex
	calls [][]Message
	param []Params
}

// Stream records the request and returns a stream over Fragments.
func (f *FakeBackend) Stream(ctx context.Context, messages []Message, params Params) (Stream, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]Message(nil), messages...))
	f.param = append(f.param, params)
	f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	return &fakeStream{ctx: ctx, fragments: f.Fragments, pos: -1, endErr: f.StreamErr}, nil
}

// Calls returns the messages of every Stream call so far.
func (f *FakeBackend) Calls() [][]Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]Message(nil), f.calls...)
}

// Params returns the decoding parameters of every Stream call so far.
func (f *FakeBackend) Params() []Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Params(nil), f.param...)
}

type fakeStream struct {
	ctx       context.Context
	fragments []string
	pos       int
	endErr    error
	err       error
	closed    bool
}

func (s *fakeStream) Next() bool {
	if s.err != nil || s.closed {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}
	if s.pos+1 >= len(s.fragments) {
		s.err = s.endErr
		return false
	}
	s.pos++
	return true
}

func (s *fakeStream) Fragment() string { return s.fragments[s.pos] }
func (s *fakeStream) Err() error       { return s.err }

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}
