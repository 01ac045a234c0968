package charts

import (
	"math"
	"strconv"
	"strings"
)

// Vec is a point in drawing-surface coordinates (origin top-left, y down)
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Command is one vector path command: M, L, A or Z with SVG argument order
type Command struct {
	Op   string    `json:"op"`
	Args []float64 `json:"args,omitempty"`
}

// Path is an ordered list of path commands
type Path []Command

// MoveTo appends an absolute move
func (p Path) MoveTo(v Vec) Path {
	return append(p, Command{Op: "M", Args: []float64{v.X, v.Y}})
}

// LineTo appends an absolute line
func (p Path) LineTo(v Vec) Path {
	return append(p, Command{Op: "L", Args: []float64{v.X, v.Y}})
}

// ArcTo appends an elliptical arc with equal radii and no rotation
func (p Path) ArcTo(radius float64, largeArc, sweep bool, v Vec) Path {
	return append(p, Command{Op: "A", Args: []float64{radius, radius, 0, flag(largeArc), flag(sweep), v.X, v.Y}})
}

// Close appends a close-path command
func (p Path) Close() Path {
	return append(p, Command{Op: "Z"})
}

// String renders the path in SVG "d" attribute syntax
func (p Path) String() string {
	var b strings.Builder
	for i, c := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Op)
		for _, a := range c.Args {
			b.WriteByte(' ')
			b.WriteString(FormatCoord(a))
		}
	}
	return b.String()
}

// FormatCoord renders a coordinate with at most four decimals
func FormatCoord(v float64) string {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Points renders "x,y x,y ..." for polyline/polygon attributes
func Points(vs []Vec) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = FormatCoord(v.X) + "," + FormatCoord(v.Y)
	}
	return strings.Join(parts, " ")
}

// Polar converts an angle in degrees (clockwise from 3 o'clock) and a radius
// around c into surface coordinates
func Polar(c Vec, radius, degrees float64) Vec {
	rad := degrees * math.Pi / 180
	return Vec{
		X: c.X + radius*math.Cos(rad),
		Y: c.Y + radius*math.Sin(rad),
	}
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
