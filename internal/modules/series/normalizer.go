package series

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"
)

// Scale divisors for monetary feeds
const (
	Unscaled = 1.0
	Millions = 1_000_000.0
)

// DefaultTokenSeparator splits composite period tokens such as "3.Marco"
const DefaultTokenSeparator = "."

// FieldExtractor reads the numeric value of a record
type FieldExtractor func(RawRecord) (float64, error)

// LabelBuilder derives the display label of a record
type LabelBuilder func(RawRecord) (string, error)

// Field extracts a top-level numeric field
func Field(name string) FieldExtractor {
	return func(r RawRecord) (float64, error) {
		return r.Number(name)
	}
}

// FieldPath extracts a numeric value through a JSONPath expression, for feeds
// that nest their figures (e.g. `$.totais.captacao`). When the path selects
// several values the first one is used.
func FieldPath(path string) (FieldExtractor, error) {
	eval, err := jsonpath.New(path)
	if err != nil {
		return nil, fmt.Errorf("invalid field path %q: %w", path, err)
	}

	return func(r RawRecord) (float64, error) {
		val, err := eval(context.Background(), map[string]interface{}(r))
		if err != nil {
			return 0, &FieldError{Field: path, Err: ErrFieldMissing}
		}
		if list, ok := val.([]interface{}); ok {
			if len(list) == 0 {
				return 0, &FieldError{Field: path, Err: ErrFieldMissing}
			}
			val = list[0]
		}
		if val == nil {
			return 0, &FieldError{Field: path, Err: ErrFieldMissing}
		}
		n, err := toNumber(val)
		if err != nil {
			return 0, &FieldError{Field: path, Err: err}
		}
		return n, nil
	}, nil
}

// WeekLabel builds "S<index> <Mon>" labels from a composite "<index>.<month>"
// token, e.g. "3.Marco" becomes "S3 Mar".
func WeekLabel(field string) LabelBuilder {
	return PeriodLabel(field, DefaultTokenSeparator, "S")
}

// PeriodLabel splits the token in field on sep and combines the index with the
// first three letters of the period name.
func PeriodLabel(field, sep, prefix string) LabelBuilder {
	return func(r RawRecord) (string, error) {
		token, err := r.String(field)
		if err != nil {
			return "", err
		}

		index, period, found := strings.Cut(token, sep)
		index = strings.TrimSpace(index)
		period = strings.TrimSpace(period)
		if !found || index == "" || period == "" {
			return "", &FieldError{
				Field: field,
				Err:   fmt.Errorf("%w: %q", ErrMalformedToken, token),
			}
		}

		return fmt.Sprintf("%s%s %s", prefix, index, ShortPeriod(period)), nil
	}
}

// ShortPeriod abbreviates a period name to its first three letters
func ShortPeriod(name string) string {
	runes := []rune(name)
	if len(runes) <= 3 {
		return name
	}
	return string(runes[:3])
}

// Normalized is the outcome of a normalization pass
type Normalized struct {
	Series  Series                  `json:"series"`
	Dropped []*MalformedRecordError `json:"-"`
}

// Normalizer converts raw records into a Series, dividing every value by a
// fixed unit divisor.
type Normalizer struct {
	divisor float64
	log     zerolog.Logger
}

// NewNormalizer creates a normalizer. The divisor must be a positive finite
// number; use Unscaled to keep values as they are.
func NewNormalizer(divisor float64, log zerolog.Logger) (*Normalizer, error) {
	if !(divisor > 0) || math.IsInf(divisor, 0) {
		return nil, fmt.Errorf("invalid scale divisor %v: must be positive and finite", divisor)
	}
	return &Normalizer{
		divisor: divisor,
		log:     log.With().Str("component", "normalizer").Logger(),
	}, nil
}

// Divisor returns the configured unit divisor
func (n *Normalizer) Divisor() float64 {
	return n.divisor
}

// Normalize extracts (label, value) points in input order. Records with a
// missing, non-numeric or non-finite value, or a label that cannot be built,
// are dropped individually and reported in Normalized.Dropped. ErrEmptySeries
// is returned when nothing survives.
func (n *Normalizer) Normalize(records []RawRecord, value FieldExtractor, label LabelBuilder) (Normalized, error) {
	out := Normalized{Series: make(Series, 0, len(records))}

	for i, rec := range records {
		v, err := value(rec)
		if err != nil {
			out.Dropped = append(out.Dropped, n.drop(i, err))
			continue
		}

		scaled := v / n.divisor
		if math.IsNaN(scaled) || math.IsInf(scaled, 0) {
			out.Dropped = append(out.Dropped, n.drop(i, ErrFieldNotFinite))
			continue
		}

		l, err := label(rec)
		if err != nil {
			out.Dropped = append(out.Dropped, n.drop(i, err))
			continue
		}

		out.Series = append(out.Series, Point{Label: l, Value: scaled})
	}

	if len(out.Dropped) > 0 {
		n.log.Debug().
			Int("records", len(records)).
			Int("kept", len(out.Series)).
			Int("dropped", len(out.Dropped)).
			Msg("Normalized feed records with exclusions")
	}

	if len(out.Series) == 0 {
		return out, fmt.Errorf("%w: %d of %d records dropped", ErrEmptySeries, len(out.Dropped), len(records))
	}

	return out, nil
}

func (n *Normalizer) drop(index int, err error) *MalformedRecordError {
	merr := &MalformedRecordError{Index: index, Err: err}
	n.log.Warn().Err(merr).Int("index", index).Msg("Dropping malformed feed record")
	return merr
}
