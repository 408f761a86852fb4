package busclient

import (
	"context"
	"encoding"
	"fmt"
	"net"
)

// DeviceStream represents a connection to a device's raw input stream.
// Reports written to the stream become the device's current state on the bus.
type DeviceStream struct {
	conn   net.Conn
	BusID  uint32
	DevID  string
	closed bool
}

// OpenStream connects to an existing device's stream channel. The device must
// already exist on the bus (use DeviceAddCtx first).
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*DeviceStream, error) {
	if c.transport.mock != nil {
		return nil, fmt.Errorf("stream connections not supported with mock transport")
	}

	d := &net.Dialer{Timeout: c.transport.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.transport.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	if c.transport.cfg.Password != "" {
		conn, err = authenticate(conn, c.transport.cfg.Password)
		if err != nil {
			return nil, err
		}
	}

	streamPath := fmt.Sprintf("bus/%d/%s\x00", busID, devID)
	if _, err := conn.Write([]byte(streamPath)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}

	return &DeviceStream{conn: conn, BusID: busID, DevID: devID}, nil
}

// AddDeviceAndConnect creates a device on the specified bus and immediately
// connects to its stream.
func (c *Client) AddDeviceAndConnect(ctx context.Context, busID uint32, deviceType string) (*DeviceStream, error) {
	resp, err := c.DeviceAddCtx(ctx, busID, deviceType)
	if err != nil {
		return nil, err
	}
	return c.OpenStream(ctx, busID, resp.DevId)
}

// Write sends raw bytes to the device stream (client → device input).
func (s *DeviceStream) Write(data []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("stream closed")
	}
	return s.conn.Write(data)
}

// WriteBinary marshals and sends a BinaryMarshaler to the device stream. This
// is the preferred way to push device input (e.g. xbox360.InputState).
func (s *DeviceStream) WriteBinary(v encoding.BinaryMarshaler) error {
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = s.conn.Write(data)
	return err
}

// Close terminates the stream connection.
func (s *DeviceStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
