package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// Capture records every event written through its logger so tests can
// assert on what a sync reported.
type Capture struct {
	Logger *zerolog.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

// Entry is one decoded log event.
type Entry map[string]any

// Str returns a string field, or "" when absent.
func (e Entry) Str(key string) string {
	s, _ := e[key].(string)
	return s
}

// NewCapture returns a trace-level capturing logger. The global level is
// restored when the test ends.
func NewCapture(t testing.TB) *Capture {
	t.Helper()

	old := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(old) })

	c := &Capture{}
	logger := zerolog.New(c).Level(zerolog.TraceLevel)
	c.Logger = &logger
	return c
}

func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Entries decodes the captured events in order. Lines that are not JSON
// are skipped.
func (c *Capture) Entries() []Entry {
	c.mu.Lock()
	data := bytes.Clone(c.buf.Bytes())
	c.mu.Unlock()

	var out []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var e Entry
		if json.Unmarshal(sc.Bytes(), &e) == nil {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the events at level whose message is msg.
func (c *Capture) Find(level zerolog.Level, msg string) []Entry {
	var out []Entry
	for _, e := range c.Entries() {
		if e.Str(zerolog.LevelFieldName) == level.String() && e.Str(zerolog.MessageFieldName) == msg {
			out = append(out, e)
		}
	}
	return out
}
