// Package series turns loosely-typed feed records into ordered, chart-ready
// (label, value) series.
package series

// Point is a single labelled value of a series
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is an ordered sequence of points. Order is the source order
// (chronological or category) and is never re-sorted.
type Series []Point

// Values returns the point values in order
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Labels returns the point labels in order
func (s Series) Labels() []string {
	labels := make([]string, len(s))
	for i, p := range s {
		labels[i] = p.Label
	}
	return labels
}

// Window returns the inclusive sub-slice [start, end] without copying.
// Out-of-range bounds yield an empty series.
func (s Series) Window(start, end int) Series {
	if start < 0 || end >= len(s) || start > end {
		return Series{}
	}
	return s[start : end+1]
}
