// Package midi feeds MIDI note input into the control thread. Incoming
// messages are parsed on the driver's callback goroutine and buffered in a
// non-blocking ring; the control thread polls them and turns them into jam
// notes. A full ring drops the event and counts it, it never blocks the
// callback.
package midi

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/mkarlsen/stepbox/rt"
)

// NoteEvent is one parsed note on or off.
type NoteEvent struct {
	Pitch    uint8
	Velocity uint8
	On       bool
}

type Context struct {
	driver  *rtmididrv.Driver
	in      drivers.In
	stop    func()
	events  *rt.Ring[NoteEvent]
	dropped atomic.Uint32
}

// NewContext opens the RTMIDI driver. A machine without one yields a context
// that lists no devices instead of an error.
func NewContext() *Context {
	c := &Context{events: rt.NewRing[NoteEvent](256)}
	c.driver, _ = rtmididrv.New()
	return c
}

// InputDevices lists the names of the available MIDI inputs.
func (c *Context) InputDevices() []string {
	if c.driver == nil {
		return nil
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return nil
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names
}

// Open starts listening on the first input whose name has the given prefix,
// closing any previously open input.
func (c *Context) Open(prefix string) error {
	if c.driver == nil {
		return errors.New("no MIDI driver available")
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("listing MIDI inputs: %w", err)
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), prefix) {
			continue
		}
		c.closeInput()
		if err := in.Open(); err != nil {
			return fmt.Errorf("opening MIDI input %s: %w", in.String(), err)
		}
		stop, err := midi.ListenTo(in, c.handleMessage)
		if err != nil {
			in.Close()
			return fmt.Errorf("listening to %s: %w", in.String(), err)
		}
		c.in, c.stop = in, stop
		return nil
	}
	return fmt.Errorf("no MIDI input matching %q", prefix)
}

func (c *Context) handleMessage(msg midi.Message, timestampms int32) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		c.push(NoteEvent{Pitch: key, Velocity: vel, On: true})
	case msg.GetNoteEnd(&ch, &key):
		c.push(NoteEvent{Pitch: key})
	}
}

func (c *Context) push(ev NoteEvent) {
	if !c.events.Push(ev) {
		c.dropped.Add(1)
	}
}

// Poll returns the next buffered note event. Control thread only.
func (c *Context) Poll() (NoteEvent, bool) {
	return c.events.Pop()
}

// Dropped reports how many events were lost to a full buffer.
func (c *Context) Dropped() int {
	return int(c.dropped.Load())
}

func (c *Context) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.in != nil && c.in.IsOpen() {
		c.in.Close()
	}
	c.in = nil
}

func (c *Context) Close() {
	c.closeInput()
	if c.driver != nil {
		c.driver.Close()
	}
}
