package protocol

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by transports after Close or when the peer went
// away.
var ErrClosed = errors.New("transport closed")

// Transport carries encoded messages in send order.
type Transport interface {
	Send(ctx context.Context, msg []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

const pipeBuffer = 64

// pipeEnd is one side of an in-memory pipe.
type pipeEnd struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

// NewPipe returns the two connected ends of an ordered in-memory
// transport. Closing either end closes both.
func NewPipe() (Transport, Transport) {
	ab := make(chan []byte, pipeBuffer)
	ba := make(chan []byte, pipeBuffer)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{in: ba, out: ab, done: done, once: once},
		&pipeEnd{in: ab, out: ba, done: done, once: once}
}

func (p *pipeEnd) Send(ctx context.Context, msg []byte) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- bytes.Clone(msg):
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-p.in:
		return msg, nil
	case <-p.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

type received struct {
	msg []byte
	err error
}

// recvOrErr returns the next frame from in. Once the reader has gone, the
// terminal error is returned for every call.
func recvOrErr(ctx context.Context, in <-chan received, done <-chan struct{}, last *received) ([]byte, error) {
	select {
	case r, ok := <-in:
		if !ok {
			return nil, last.err
		}
		return r.msg, r.err
	case <-done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stream is a newline-delimited JSON transport over a byte stream such as
// a subprocess's stdin/stdout.
type Stream struct {
	w      io.Writer
	closer io.Closer
	wmu    sync.Mutex
	in     chan received
	last   received
	done   chan struct{}
	once   sync.Once
}

// NewStream starts reading lines from r. closer, if not nil, is closed by
// Close.
func NewStream(r io.Reader, w io.Writer, closer io.Closer) *Stream {
	s := &Stream{w: w, closer: closer, in: make(chan received), done: make(chan struct{})}
	go s.readLoop(bufio.NewReader(r))
	return s
}

func (s *Stream) readLoop(r *bufio.Reader) {
	for {
		line, err := r.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			select {
			case s.in <- received{msg: trimmed}:
			case <-s.done:
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrClosed
			}
			s.last = received{err: err}
			close(s.in)
			return
		}
	}
}

// Send writes msg as one line. msg must not contain a newline.
func (s *Stream) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	line := make([]byte, 0, len(msg)+1)
	line = append(line, msg...)
	line = append(line, '\n')
	if _, err := s.w.Write(line); err != nil {
		return err
	}
	return nil
}

// Receive returns the next non-empty line.
func (s *Stream) Receive(ctx context.Context) ([]byte, error) {
	return recvOrErr(ctx, s.in, s.done, &s.last)
}

// Close stops the reader and closes the underlying closer.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}
