package framework

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// Loop drives a fixed, ordered list of devices from a single goroutine.
type Loop struct {
	// Clock samples the millisecond time once per iteration.
	Clock TimeSource
	// Interval is the longest sleep between iterations when no device
	// is due earlier.
	Interval time.Duration

	devices []*deviceEntry
	runners []Runnable

	eventFired int32
	wakeUpCh   chan struct{}
	ctx        context.Context
	now        uint32
}

type deviceEntry struct {
	dev       Device
	name      string
	active    bool
	scheduled bool
	start     uint32
	duration  uint32
}

// NewLoop creates a Loop sampling the given clock.
func NewLoop(clock TimeSource) *Loop {
	return &Loop{
		Clock:    clock,
		Interval: 10 * time.Millisecond,
		wakeUpCh: make(chan struct{}, 1),
		ctx:      context.Background(),
	}
}

// AddDevice appends devices. The order is kept for the lifetime of the loop
// and later devices observe side effects of earlier ones within a tick.
func (l *Loop) AddDevice(devs ...Device) *Loop {
	for _, dev := range devs {
		entry := &deviceEntry{dev: dev}
		if named, ok := dev.(Named); ok {
			entry.name = named.Name()
		} else {
			entry.name = strconv.Itoa(len(l.devices))
		}
		l.devices = append(l.devices, entry)
		if runner, ok := dev.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds background Runnables started with Run.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Init initializes and starts all devices. Devices failing Initialize
// are excluded and the errors aggregated.
func (l *Loop) Init() error {
	var errs AggregatedError
	l.now = l.Clock.Millis()
	for _, d := range l.devices {
		if err := d.dev.Initialize(l); err != nil {
			glog.Errorf("device %s initialize failed: %v", d.name, err)
			errs.Add(&DeviceError{Device: d.name, Err: err})
			continue
		}
		d.active = true
	}
	for _, d := range l.devices {
		if d.active {
			d.reschedule(l.now, d.dev.Start(l))
		}
	}
	return errs.Aggregate()
}

// TriggerEvent implements DeviceContext. It is safe to call from any
// goroutine and only raises a flag.
func (l *Loop) TriggerEvent() {
	atomic.StoreInt32(&l.eventFired, 1)
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Millis implements DeviceContext.
func (l *Loop) Millis() uint32 {
	return l.now
}

// Context implements DeviceContext.
func (l *Loop) Context() context.Context {
	return l.ctx
}

// Tick runs one iteration at the given time.
func (l *Loop) Tick(now uint32) {
	l.now = now
	if atomic.SwapInt32(&l.eventFired, 0) != 0 {
		for _, d := range l.devices {
			if !d.active {
				continue
			}
			if dur := d.dev.Event(l); dur != DurationIgnore {
				d.reschedule(now, dur)
			}
		}
	}
	for _, d := range l.devices {
		if d.active && d.due(now) {
			d.reschedule(now, d.dev.Timeout(l))
		}
	}
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	l.ctx = ctx

	runner := NewRunnerWith(ctx)
	runner.Go(l.runners...)
	defer runner.Wait()

	if err := l.Init(); err != nil {
		glog.Warningf("loop started with failed devices: %v", err)
	}

	interval := l.Interval
	if interval == 0 {
		interval = 10 * time.Millisecond
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		l.Tick(l.Clock.Millis())
		sleep := l.nextSleep(interval)
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(sleep)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-l.wakeUpCh:
		}
	}
}

func (l *Loop) nextSleep(max time.Duration) time.Duration {
	sleep := max
	for _, d := range l.devices {
		if !d.active || !d.scheduled {
			continue
		}
		elapsed := Elapsed(l.now, d.start)
		if elapsed >= d.duration {
			return 0
		}
		if left := time.Duration(d.duration-elapsed) * time.Millisecond; left < sleep {
			sleep = left
		}
	}
	return sleep
}

func (d *deviceEntry) reschedule(now uint32, dur Duration) {
	if dur < 0 {
		d.scheduled = false
		return
	}
	d.scheduled, d.start, d.duration = true, now, uint32(dur)
}

func (d *deviceEntry) due(now uint32) bool {
	return d.scheduled && Elapsed(now, d.start) >= d.duration
}
