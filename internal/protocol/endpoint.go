package protocol

import "context"

// HostEndpoint is the host's typed view of a transport.
type HostEndpoint struct {
	t Transport
}

// NewHostEndpoint wraps t.
func NewHostEndpoint(t Transport) *HostEndpoint {
	return &HostEndpoint{t: t}
}

// Send encodes and sends m to the surface.
func (e *HostEndpoint) Send(ctx context.Context, m HostMessage) error {
	data, err := EncodeHost(m)
	if err != nil {
		return err
	}
	return e.t.Send(ctx, data)
}

// Receive returns the next surface message. Decode failures are returned
// with ErrMalformed or ErrUnknownCommand and leave the transport usable.
func (e *HostEndpoint) Receive(ctx context.Context) (SurfaceMessage, error) {
	data, err := e.t.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeSurface(data)
}

// Close closes the transport.
func (e *HostEndpoint) Close() error {
	return e.t.Close()
}

// SurfaceEndpoint is the surface's typed view of a transport.
type SurfaceEndpoint struct {
	t Transport
}

// NewSurfaceEndpoint wraps t.
func NewSurfaceEndpoint(t Transport) *SurfaceEndpoint {
	return &SurfaceEndpoint{t: t}
}

// Send encodes and sends m to the host.
func (e *SurfaceEndpoint) Send(ctx context.Context, m SurfaceMessage) error {
	data, err := EncodeSurface(m)
	if err != nil {
		return err
	}
	return e.t.Send(ctx, data)
}

// Receive returns the next host message.
func (e *SurfaceEndpoint) Receive(ctx context.Context) (HostMessage, error) {
	data, err := e.t.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeHost(data)
}

// Close closes the transport.
func (e *SurfaceEndpoint) Close() error {
	return e.t.Close()
}
