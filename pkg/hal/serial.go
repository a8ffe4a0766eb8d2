package hal

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"
	"github.com/tarm/serial"
)

// SerialPort adapts a blocking serial device into a non-blocking Port.
// A background reader copies bytes into a bounded buffer; Read drains
// whatever is buffered.
type SerialPort struct {
	Name string

	dev    io.ReadWriteCloser
	byteCh chan byte
	once   sync.Once
}

// OpenSerial opens the named serial device.
func OpenSerial(name string, baud int) (*SerialPort, error) {
	dev, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, err
	}
	return NewSerialPort(name, dev), nil
}

// NewSerialPort wraps an already opened stream.
func NewSerialPort(name string, dev io.ReadWriteCloser) *SerialPort {
	return &SerialPort{Name: name, dev: dev, byteCh: make(chan byte, 1024)}
}

// Read implements Port.
func (p *SerialPort) Read(buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		select {
		case b := <-p.byteCh:
			buf[n] = b
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

// Write implements Port.
func (p *SerialPort) Write(buf []byte) (int, error) {
	return p.dev.Write(buf)
}

// Close implements io.Closer.
func (p *SerialPort) Close() error {
	var err error
	p.once.Do(func() { err = p.dev.Close() })
	return err
}

// Run implements Runnable and pumps received bytes until the context is
// canceled or the device fails.
func (p *SerialPort) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := p.dev.Read(buf)
			if err != nil {
				errCh <- err
				return
			}
			for _, b := range buf[:n] {
				select {
				case p.byteCh <- b:
				default:
					glog.Warningf("serial %s: receive buffer full, byte dropped", p.Name)
				}
			}
		}
	}()
	select {
	case <-ctx.Done():
		p.Close()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
