package modeling

import (
	"math"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
)

// Layout returns straight waypoints joining the borders of source and
// target along the line between their centers.
func Layout(source, target *diagram.Element) []cmmn.Point {
	if source == nil || target == nil {
		return nil
	}
	a, b := source.Bounds.Center(), target.Bounds.Center()
	return []cmmn.Point{crop(source.Bounds, a, b), crop(target.Bounds, b, a)}
}

// crop returns the point where the segment from the center of r towards
// to leaves r.
func crop(r cmmn.Bounds, from, to cmmn.Point) cmmn.Point {
	dx, dy := to.X-from.X, to.Y-from.Y
	if dx == 0 && dy == 0 {
		return from
	}
	t := math.Inf(1)
	if dx != 0 {
		t = math.Min(t, (r.Width/2)/math.Abs(dx))
	}
	if dy != 0 {
		t = math.Min(t, (r.Height/2)/math.Abs(dy))
	}
	if t > 1 {
		t = 1
	}
	return cmmn.Point{X: from.X + dx*t, Y: from.Y + dy*t}
}

func translate(points []cmmn.Point, delta cmmn.Point) []cmmn.Point {
	if len(points) == 0 {
		return nil
	}
	out := make([]cmmn.Point, len(points))
	for i, p := range points {
		out[i] = cmmn.Point{X: p.X + delta.X, Y: p.Y + delta.Y}
	}
	return out
}

func copyPoints(points []cmmn.Point) []cmmn.Point {
	if points == nil {
		return nil
	}
	out := make([]cmmn.Point, len(points))
	copy(out, points)
	return out
}

func shift(b cmmn.Bounds, delta cmmn.Point) cmmn.Bounds {
	b.X += delta.X
	b.Y += delta.Y
	return b
}
