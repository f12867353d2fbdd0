// Command stepbox-play renders .yml project files to .wav/.raw files or
// plays them through the system audio output.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkarlsen/stepbox"
	"github.com/mkarlsen/stepbox/app"
	"github.com/mkarlsen/stepbox/oto"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. Created if needed; defaults to the working directory.")
	play := flag.Bool("p", false, "Play the input projects (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered project as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered project as .wav file. By default, saves stereo float32 buffer to disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	tail := flag.Float64("tail", 1, "Seconds of silence rendered after the last pattern, for release and delay tails.")
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*play = true
	}
	var audioContext stepbox.AudioContext
	if *play {
		var err error
		audioContext, err = oto.NewContext()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
			os.Exit(1)
		}
	}
	process := func(filename string) error {
		output := func(extension string, contents []byte) error {
			if *stdout {
				os.Stdout.Write(contents)
				return nil
			}
			_, name := filepath.Split(filename)
			dir := *directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			f := filepath.Join(dir, name)
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		inputBytes, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		proj, err := stepbox.ParseProject(inputBytes)
		if err != nil {
			return err
		}
		a, engine := app.New()
		if err := a.LoadProject(proj); err != nil {
			return err
		}
		if err := a.Send(app.TogglePlay{}); err != nil {
			return err
		}
		total := a.ProjectFrames() + int(*tail*stepbox.SampleRate)
		buffer := make(stepbox.AudioBuffer, 0, total)
		block := make(stepbox.AudioBuffer, stepbox.FramesPerBuffer)
		for len(buffer) < total {
			engine.Render(block)
			buffer = append(buffer, block...)
		}
		buffer = buffer[:total]
		if *rawOut {
			raw, err := buffer.Raw(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if err := output(".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %v", err)
			}
		}
		if *wavOut {
			wav, err := buffer.Wav(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %v", err)
			}
			if err := output(".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		if *play {
			done := make(chan struct{})
			pos := 0
			closer := audioContext.Play(func(buf stepbox.AudioBuffer) error {
				n := copy(buf, buffer[pos:])
				for i := n; i < len(buf); i++ {
					buf[i] = stepbox.Stereo{}
				}
				pos += n
				if n == 0 {
					select {
					case <-done:
					default:
						close(done)
					}
				}
				return nil
			})
			<-done
			closer.Close()
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			files, err := filepath.Glob(filepath.Join(param, "*.yml"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
			for _, file := range files {
				if err := process(file); err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			if err := process(param); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Stepbox command line utility for playing .yml project files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
