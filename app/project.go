package app

import (
	"github.com/mkarlsen/stepbox"
)

// LoadProject replaces the musical state with the project's: tempo, sounds,
// patterns and song order. Tracks are created to cover the widest pattern.
// Scheduling state is untouched; loading while playing keeps playing.
func (a *App) LoadProject(proj *stepbox.Project) error {
	if err := proj.Validate(); err != nil {
		return err
	}
	a.drainDisposal()
	trackCount := 0
	for _, pat := range proj.Patterns {
		trackCount = max(trackCount, len(pat.Tracks))
	}
	for a.instrumentCount() < trackCount {
		if err := a.createTrack(stepbox.TrackInstrument); err != nil {
			return err
		}
	}
	for slot, path := range proj.Sounds {
		if err := a.loadSlot(slot, path); err != nil {
			return err
		}
	}
	a.state.BPM = proj.BPM
	a.state.LinesPerBeat = proj.LinesPerBeat
	a.patterns = make(map[stepbox.PatternID]*stepbox.Pattern, len(proj.Patterns))
	a.state.Patterns = make(map[stepbox.PatternID]*stepbox.EnginePattern, len(proj.Patterns))
	for i := range proj.Patterns {
		a.patterns[stepbox.PatternID(i)] = proj.Pattern(i, trackCount)
	}
	a.nextPattern = stepbox.PatternID(len(proj.Patterns))
	a.state.Song = a.state.Song[:0]
	for _, o := range proj.Order {
		a.state.Song = append(a.state.Song, stepbox.PatternID(o))
	}
	a.songPos = 0
	if len(a.state.Song) > 0 {
		a.state.Selected = a.state.Song[0]
	}
	a.state.Loop = stepbox.None[[2]int]()
	a.recompileAll()
	a.sweepCache()
	a.snapshots.Publish(a.state.Copy())
	return nil
}

// ProjectFrames returns how many output frames one full pass of the song
// takes at the current tempo.
func (a *App) ProjectFrames() int {
	ticks := 0
	for _, id := range a.state.Song {
		if p, ok := a.state.Patterns[id]; ok {
			ticks += p.Length
		}
	}
	return ticks * a.state.SamplesToTick()
}
