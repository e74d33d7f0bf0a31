package render

import (
	"fmt"
	"image/color"
	"math"
)

// redsStops are the ColorBrewer "Reds" ramp anchors, light to dark. Counts
// map onto the ramp linearly; no transform is applied before coloring.
var redsStops = []color.RGBA{
	{0xFF, 0xF5, 0xF0, 0xFF},
	{0xFE, 0xE0, 0xD2, 0xFF},
	{0xFC, 0xBB, 0xA1, 0xFF},
	{0xFC, 0x92, 0x72, 0xFF},
	{0xFB, 0x6A, 0x4A, 0xFF},
	{0xEF, 0x3B, 0x2C, 0xFF},
	{0xCB, 0x18, 0x1D, 0xFF},
	{0xA5, 0x0F, 0x15, 0xFF},
	{0x67, 0x00, 0x0D, 0xFF},
}

// reds interpolates the Reds ramp at t in [0, 1].
func reds(t float64) color.RGBA {
	if math.IsNaN(t) || t <= 0 {
		return redsStops[0]
	}
	if t >= 1 {
		return redsStops[len(redsStops)-1]
	}

	segments := float64(len(redsStops) - 1)
	pos := t * segments
	i := int(pos)
	frac := pos - float64(i)

	a, b := redsStops[i], redsStops[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + frac*(float64(y)-float64(x))))
	}
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 0xFF}
}

// countScale normalizes a count against the maximum. A zero maximum maps
// everything to the lightest stop.
func countScale(count, maxCount int) float64 {
	if maxCount <= 0 {
		return 0
	}
	return float64(count) / float64(maxCount)
}

// redsHex returns the ramp color at t as a #rrggbb string for the
// interactive map.
func redsHex(t float64) string {
	c := reds(t)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func maxCount(counts []int) int {
	m := 0
	for _, c := range counts {
		if c > m {
			m = c
		}
	}
	return m
}
