package stepbox

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

type (
	// Project is the serializable musical state: tempo, sound file paths,
	// pattern grids and the song order. Scheduling state (playhead, voices)
	// is deliberately not part of it.
	Project struct {
		BPM          int              `yaml:"bpm"`
		LinesPerBeat int              `yaml:"linesperbeat"`
		Sounds       []string         `yaml:"sounds"`
		Order        []int            `yaml:"order,flow"`
		Patterns     []ProjectPattern `yaml:"patterns"`
	}

	// ProjectPattern is the compact on-disk form of a pattern: one pitch grid
	// per track, -1 marking empty steps and 109 the note off.
	ProjectPattern struct {
		Length int     `yaml:"length"`
		Tracks [][]int `yaml:"tracks,flow"`
	}
)

// ParseProject unmarshals and validates a .yml project.
func ParseProject(data []byte) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing project: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Project) Validate() error {
	if p.BPM <= 0 {
		return errors.New("project: bpm must be positive")
	}
	if p.LinesPerBeat <= 0 {
		return errors.New("project: linesperbeat must be positive")
	}
	if len(p.Patterns) > MaxPatterns {
		return fmt.Errorf("project: %d patterns exceeds the maximum of %d", len(p.Patterns), MaxPatterns)
	}
	for i, pat := range p.Patterns {
		if pat.Length < 1 || pat.Length > MaxPatternLength {
			return fmt.Errorf("project: pattern %d length %d out of range 1..%d", i, pat.Length, MaxPatternLength)
		}
		for _, track := range pat.Tracks {
			for _, pitch := range track {
				if pitch != -1 && (pitch < 0 || pitch > NoteOff) {
					return fmt.Errorf("project: pattern %d has pitch %d out of range", i, pitch)
				}
			}
		}
	}
	for _, o := range p.Order {
		if o < 0 || o >= len(p.Patterns) {
			return fmt.Errorf("project: order entry %d out of range", o)
		}
	}
	return nil
}

// Pattern expands the grid of pattern index i to an editable Pattern with
// tracks columns, so short or missing grids still yield a full grid.
func (p *Project) Pattern(i, tracks int) *Pattern {
	pat := NewPattern(p.Patterns[i].Length, tracks)
	for ti, grid := range p.Patterns[i].Tracks {
		if ti >= tracks {
			break
		}
		for li, pitch := range grid {
			if li >= pat.Length || pitch == -1 {
				continue
			}
			pat.Tracks[ti].Steps[li].Pitch = Some(uint8(pitch))
		}
	}
	return pat
}

// Marshal renders the project as yaml.
func (p *Project) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
