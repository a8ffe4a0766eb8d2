package hal

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	hostInitOnce sync.Once
	hostInitErr  error
)

// OpenPin looks up a GPIO line by its host name (e.g. "GPIO17").
// An empty name yields a NopPin.
func OpenPin(name string) (Pin, error) {
	if name == "" {
		return NopPin{}, nil
	}
	hostInitOnce.Do(func() {
		_, hostInitErr = host.Init()
	})
	if hostInitErr != nil {
		return nil, fmt.Errorf("gpio host init: %w", hostInitErr)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	return &periphPin{pin: p}, nil
}

type periphPin struct {
	pin gpio.PinIO
}

func (p *periphPin) Out(high bool) error {
	return p.pin.Out(gpio.Level(high))
}

func (p *periphPin) In() error {
	return p.pin.In(gpio.PullNoChange, gpio.NoEdge)
}

func (p *periphPin) Read() bool {
	return bool(p.pin.Read())
}
