package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// EventLogger records raw input events with optional file output.
type EventLogger interface {
	Event(kind string, a, b int32, pressed bool)
}

// eventLogger implements EventLogger with thread-safe writes.
type eventLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewEventLogger creates a new EventLogger. If writer is nil, returns a no-op logger.
func NewEventLogger(w io.Writer) EventLogger {
	return &eventLogger{w: w}
}

// Event emits a single-line trace of one input event. For motion events a and
// b are the deltas; for key and button events a is the code and pressed is the
// transition.
func (l *eventLogger) Event(kind string, a, b int32, pressed bool) {
	if l.w == nil {
		return
	}

	state := "up"
	if pressed {
		state = "down"
	}

	var line string
	switch kind {
	case "motion":
		line = fmt.Sprintf("%s motion dx=%d dy=%d\n",
			time.Now().Format("2006/01/02 15:04:05.000"), a, b)
	default:
		line = fmt.Sprintf("%s %s code=0x%02x %s\n",
			time.Now().Format("2006/01/02 15:04:05.000"), kind, a, state)
	}

	l.mu.Lock()
	_, _ = l.w.Write([]byte(line))
	l.mu.Unlock()
}
