package http

import (
	"github.com/example/liveworship/internal/live"
	"github.com/example/liveworship/internal/lyrics"
	"github.com/example/liveworship/internal/worship"
)

type visibleLineDTO struct {
	Position         int               `json:"position"`
	Structure        worship.Structure `json:"structure"`
	Lyrics           string            `json:"lyrics"`
	ShowSectionLabel bool              `json:"showSectionLabel"`
}

type stateDTO struct {
	Version        uint64              `json:"version"`
	EventID        string              `json:"eventId"`
	Title          string              `json:"title"`
	Manager        string              `json:"eventManager,omitempty"`
	SelectedSongID string              `json:"selectedSongId,omitempty"`
	Position       int                 `json:"position"`
	Action         string              `json:"action"`
	LineCount      int                 `json:"lineCount"`
	Finished       bool                `json:"finished"`
	Visible        []visibleLineDTO    `json:"visible"`
	Preview        *visibleLineDTO     `json:"preview,omitempty"`
	View           live.View           `json:"view"`
	Video          live.Video          `json:"video"`
	Preferences    live.Preferences    `json:"preferences"`
	Connected      bool                `json:"connected"`
	Songs          []worship.EventSong `json:"songs"`
}

func toStateDTO(snap live.Snapshot) stateDTO {
	dto := stateDTO{
		Version:        snap.Version,
		EventID:        snap.Event.ID,
		Title:          snap.Event.Title,
		Manager:        snap.Event.Manager,
		SelectedSongID: snap.SelectedSongID,
		Position:       snap.Selection.Position,
		Action:         snap.Selection.Action,
		LineCount:      snap.LineCount(),
		Finished:       snap.Finished(),
		Visible:        toVisibleDTOs(snap.Visible()),
		View:           snap.View,
		Video:          snap.Video,
		Preferences:    snap.Preferences,
		Connected:      snap.Connected,
		Songs:          snap.Event.SortedSongs(),
	}
	if line, ok := snap.Preview(); ok {
		dto.Preview = &visibleLineDTO{Position: line.Position, Structure: line.Structure, Lyrics: line.Lyrics}
	}
	return dto
}

func toVisibleDTOs(lines []lyrics.VisibleLine) []visibleLineDTO {
	out := make([]visibleLineDTO, 0, len(lines))
	for _, line := range lines {
		out = append(out, visibleLineDTO{
			Position:         line.Position,
			Structure:        line.Structure,
			Lyrics:           line.Lyrics,
			ShowSectionLabel: line.ShowSectionLabel,
		})
	}
	return out
}
