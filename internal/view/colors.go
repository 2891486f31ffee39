package view

import (
	"fmt"
	"image/color"
	"sort"

	"calwidget/internal/model"
)

// Palette is the fixed card color cycle. Order matters: assignment indexes
// into it modulo its length.
var Palette = []color.NRGBA{
	{R: 66, G: 133, B: 244, A: 255},  // blue
	{R: 52, G: 168, B: 83, A: 255},   // green
	{R: 142, G: 86, B: 232, A: 255},  // purple
	{R: 234, G: 134, B: 64, A: 255},  // orange
	{R: 0, G: 150, B: 170, A: 255},   // teal
	{R: 219, G: 68, B: 85, A: 255},   // coral red
}

// ColorMap assigns a stable display color to each calendar name.
// Assignments grow monotonically within a session: a name, once mapped,
// keeps its color for as long as the process runs.
type ColorMap struct {
	palette  []color.NRGBA
	assigned map[string]color.NRGBA
}

// NewColorMap returns an empty map backed by Palette.
func NewColorMap() *ColorMap {
	return &ColorMap{
		palette:  Palette,
		assigned: make(map[string]color.NRGBA),
	}
}

// Update assigns colors to any calendars in events that are not yet mapped.
// The distinct names are processed in sorted order and keyed to the palette
// by their position in that sorted list, so identical name sets produce
// identical mappings regardless of event order.
func (m *ColorMap) Update(events []model.Event) {
	seen := make(map[string]bool, len(events))
	names := make([]string, 0, len(events))
	for _, e := range events {
		if !seen[e.Calendar] {
			seen[e.Calendar] = true
			names = append(names, e.Calendar)
		}
	}
	sort.Strings(names)

	for i, name := range names {
		if _, ok := m.assigned[name]; !ok {
			m.assigned[name] = m.palette[i%len(m.palette)]
		}
	}
}

// Lookup returns the color assigned to name, or the first palette entry if
// the name has never been seen.
func (m *ColorMap) Lookup(name string) color.NRGBA {
	if c, ok := m.assigned[name]; ok {
		return c
	}
	return m.palette[0]
}

// Len returns the number of assigned calendars.
func (m *ColorMap) Len() int {
	return len(m.assigned)
}

// Hex renders a color as "#rrggbb" for the web view.
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
