package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Series is a float sequence in which NaN marks a missing value. It encodes NaN and
// infinities as JSON null.
type Series []float64

// MarshalJSON implements json.Marshaler.
func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer

	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(appendFloat(nil, v))
	}
	buf.WriteByte(']')

	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler; null entries decode to NaN.
func (s *Series) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out

	return nil
}

// Valid returns the non-missing values in order.
func (s Series) Valid() []float64 {
	out := make([]float64, 0, len(s))
	for _, v := range s {
		if !IsMissing(v) {
			out = append(out, v)
		}
	}

	return out
}

// Float is a float64 that encodes NaN and infinities as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	return appendFloat(nil, float64(f)), nil
}

// IsMissing reports whether v marks a missing value.
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func appendFloat(dst []byte, v float64) []byte {
	if IsMissing(v) {
		return append(dst, "null"...)
	}

	return strconv.AppendFloat(dst, v, 'g', -1, 64)
}
