// Package waybar builds the JSON records a waybar custom module consumes.
package waybar

import (
	"encoding/json"
	"io"
	"math"
)

// Output is one status record. Waybar reads one JSON object per line.
type Output struct {
	Text       string `json:"text"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage *int   `json:"percentage,omitempty"`
}

// Percent returns a clamped percentage suitable for Output.Percentage. NaN
// maps to 0.
func Percent(v float64) *int {
	switch {
	case math.IsNaN(v), v < 0:
		v = 0
	case v > 100:
		v = 100
	}

	p := int(v)

	return &p
}

// ErrorOutput is the record printed in place of a reading that failed.
func ErrorOutput(err error) Output {
	return Output{
		Text:    "GPU Error",
		Tooltip: "Error: " + err.Error(),
		Class:   "error",
	}
}

// Encoder writes records as newline-delimited JSON.
type Encoder struct {
	enc *json.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	enc := json.NewEncoder(w)
	// Pango markup in text and tooltip must reach waybar unescaped.
	enc.SetEscapeHTML(false)

	return &Encoder{enc: enc}
}

func (e *Encoder) Encode(out Output) error {
	return e.enc.Encode(out)
}
