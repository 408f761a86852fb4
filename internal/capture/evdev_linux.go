//go:build linux

package capture

// Linux evdev capture: reads input_event structs straight from
// /dev/input/event* nodes. Relative motion is accumulated per SYN frame so the
// engine sees one MouseMove per hardware packet, matching the per-event
// granularity of raw mouse input.

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Event types and codes from linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	relX = 0x00
	relY = 0x01

	synReport = 0x00

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
	btnSide   = 0x113
	btnExtra  = 0x114

	// EV_KEY codes below this are keyboard keys; codes above are buttons.
	keyMax = 0x100
)

// inputEvent mirrors struct input_event on 64-bit kernels: two 64-bit time
// fields followed by type, code, value.
const inputEventSize = 24

type Evdev struct {
	paths   []string
	grab    bool
	logger  *slog.Logger
	events  chan Event
	files   []*os.File
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Uint64
}

// NewEvdev creates a capture source reading from the given evdev device
// nodes. If grab is set, each device is grabbed exclusively (EVIOCGRAB) so
// captured events are not also delivered to the rest of the system.
func NewEvdev(paths []string, grab bool, logger *slog.Logger) *Evdev {
	return &Evdev{
		paths:  paths,
		grab:   grab,
		logger: logger,
		events: make(chan Event, 1024),
	}
}

func (e *Evdev) Events() <-chan Event { return e.events }

// Dropped reports how many events were discarded because the consumer fell
// behind.
func (e *Evdev) Dropped() uint64 { return e.dropped.Load() }

func (e *Evdev) Start() error {
	if len(e.paths) == 0 {
		return fmt.Errorf("no input devices configured")
	}
	for _, p := range e.paths {
		f, err := os.Open(p)
		if err != nil {
			e.closeFiles()
			return fmt.Errorf("open input device %s: %w", p, err)
		}
		if e.grab {
			if err := ioctlGrab(int(f.Fd())); err != nil {
				e.logger.Warn("failed to grab input device", "device", p, "error", err)
			}
		}
		e.files = append(e.files, f)
		e.wg.Add(1)
		go e.readLoop(f, p)
	}
	e.logger.Info("input capture started", "devices", len(e.files), "grab", e.grab)
	return nil
}

func (e *Evdev) Close() error {
	e.closed.Store(true)
	e.closeFiles()
	e.wg.Wait()
	if n := e.dropped.Load(); n > 0 {
		e.logger.Warn("input events dropped during capture", "count", n)
	}
	return nil
}

func (e *Evdev) closeFiles() {
	for _, f := range e.files {
		_ = f.Close()
	}
}

func (e *Evdev) readLoop(f *os.File, path string) {
	defer e.wg.Done()

	buf := make([]byte, inputEventSize*64)
	var dx, dy int32
	pending := false

	for {
		n, err := f.Read(buf)
		if err != nil {
			if !e.closed.Load() {
				e.logger.Error("input device read failed", "device", path, "error", err)
			}
			return
		}
		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			typ := binary.LittleEndian.Uint16(buf[off+16 : off+18])
			code := binary.LittleEndian.Uint16(buf[off+18 : off+20])
			value := int32(binary.LittleEndian.Uint32(buf[off+20 : off+24]))

			switch typ {
			case evRel:
				switch code {
				case relX:
					dx += value
					pending = true
				case relY:
					dy += value
					pending = true
				}
			case evKey:
				// value 2 is key auto-repeat; the engine never needs it.
				if value == 2 {
					continue
				}
				pressed := value != 0
				if code >= keyMax {
					if btn, ok := mouseButton(code); ok {
						e.send(Event{Kind: KindMouseButton, Button: btn, Pressed: pressed})
					}
				} else {
					e.send(Event{Kind: KindKey, Code: code, Pressed: pressed})
				}
			case evSyn:
				if code == synReport && pending {
					e.send(Event{Kind: KindMouseMove, DX: dx, DY: dy})
					dx, dy = 0, 0
					pending = false
				}
			}
		}
	}
}

func (e *Evdev) send(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}

func mouseButton(code uint16) (uint16, bool) {
	switch code {
	case btnLeft:
		return MouseLeft, true
	case btnRight:
		return MouseRight, true
	case btnMiddle:
		return MouseMiddle, true
	case btnSide:
		return MouseSide, true
	case btnExtra:
		return MouseExtra, true
	}
	return 0, false
}

// ioctl request encoding (Linux _IOC macro), enough for EVIOCGRAB.
const (
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocWrite = 1
)

func ioctlGrab(fd int) error {
	// EVIOCGRAB = _IOW('E', 0x90, int)
	req := uintptr(iocWrite<<iocDirShift | int('E')<<iocTypeShift | 0x90<<iocNRShift | int(unsafe.Sizeof(int32(0)))<<iocSizeShift)
	var one int32 = 1
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&one)))
	if errno != 0 {
		return errno
	}
	return nil
}
