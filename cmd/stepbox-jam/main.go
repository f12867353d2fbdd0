// Command stepbox-jam plays the sampler live from a MIDI keyboard. Sample
// files given on the command line are loaded into consecutive sound slots;
// the first one is cued on the jam track.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/mkarlsen/stepbox"
	"github.com/mkarlsen/stepbox/app"
	"github.com/mkarlsen/stepbox/midi"
	"github.com/mkarlsen/stepbox/oto"
)

func main() {
	list := flag.Bool("l", false, "List the available MIDI input devices and exit.")
	device := flag.String("m", "", "Prefix of the MIDI input device name to listen to.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	midiContext := midi.NewContext()
	defer midiContext.Close()
	if *list {
		for _, name := range midiContext.InputDevices() {
			fmt.Println(name)
		}
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	if err := run(midiContext, *device, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(midiContext *midi.Context, device string, samples []string) error {
	if err := midiContext.Open(device); err != nil {
		return fmt.Errorf("could not open MIDI input: %v", err)
	}
	a, engine := app.New()
	if err := a.Send(app.CreateTrack{Type: stepbox.TrackInstrument}); err != nil {
		return err
	}
	for slot, path := range samples {
		if err := a.Send(app.LoadSound{Slot: slot, Path: path}); err != nil {
			return fmt.Errorf("could not load %v: %v", path, err)
		}
	}
	audioContext, err := oto.NewContext()
	if err != nil {
		return fmt.Errorf("could not acquire oto AudioContext: %v", err)
	}
	player := audioContext.Play(func(buf stepbox.AudioBuffer) error {
		engine.Render(buf)
		return nil
	})
	defer player.Close()
	fmt.Println("Playing. Press Ctrl-C to quit.")
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-interrupt:
			if n := midiContext.Dropped(); n > 0 {
				fmt.Fprintf(os.Stderr, "%d MIDI events were dropped\n", n)
			}
			return nil
		case <-ticker.C:
			for {
				ev, ok := midiContext.Poll()
				if !ok {
					break
				}
				msg := app.JamNote{Track: 1, Pitch: ev.Pitch, Velocity: ev.Velocity, On: ev.On}
				if err := a.Send(msg); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Stepbox live sampler, played from a MIDI keyboard.\nUsage: %s [flags] sample.wav [sample ...]\n", os.Args[0])
	flag.PrintDefaults()
}
