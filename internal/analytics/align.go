package analytics

import (
	"series-platform/internal/models"
)

// Palette is the fixed color cycle assigned by input position
var Palette = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// NamedSeries is one labelled input of an alignment
type NamedSeries struct {
	Label  string
	Series models.Series
}

// AlignedEntry is one rendered series of a comparison
type AlignedEntry struct {
	Label          string                `json:"label"`
	Position       int                   `json:"position"`
	Axis           models.Axis           `json:"axis"`
	Color          string                `json:"color"`
	Frequency      models.Frequency      `json:"frequency"`
	Transformation models.Transformation `json:"transformation"`
	Series         models.Series         `json:"series"`
	Summary        Summary               `json:"summary"`
}

// EntryWarning reports an input that was dropped from a comparison
type EntryWarning struct {
	Label    string `json:"label"`
	Position int    `json:"position"`
	Err      error  `json:"-"`
	Message  string `json:"message"`
}

// AlignedComparison is the bundle handed to chart and table renderers
type AlignedComparison struct {
	View     models.View       `json:"view"`
	Sub      models.SubOption  `json:"sub,omitempty"`
	Range    *models.DateRange `json:"range,omitempty"`
	Entries  []AlignedEntry    `json:"entries"`
	Warnings []EntryWarning    `json:"warnings,omitempty"`
}

// AxisFor returns the axis for an input position: the first input is drawn on
// the primary axis and every later one on the secondary axis.
func AxisFor(position int) models.Axis {
	if position == 0 {
		return models.AxisPrimary
	}
	return models.AxisSecondary
}

// ColorFor returns the palette color for an input position
func ColorFor(position int) string {
	return Palette[position%len(Palette)]
}

// Align transforms every selected series with the kind chosen by view and sub,
// truncates the result to the optional date range for display, and assigns
// axis and color by input position. Transforms run on the full history so
// lagged values at the range start stay accurate.
//
// An empty selection, an invalid view/sub combination or an inverted range
// fail the whole call. Inputs without a value field or with an unsupported
// transformation are dropped and reported as warnings.
func Align(selected []NamedSeries, view models.View, sub models.SubOption, r *models.DateRange) (AlignedComparison, error) {
	if len(selected) == 0 {
		return AlignedComparison{}, &models.AnalysisError{
			Kind:    models.KindEmptyInput,
			Message: "no series selected",
		}
	}
	if r != nil {
		if err := r.Validate(); err != nil {
			return AlignedComparison{}, err
		}
	}

	kind, err := KindFor(view, sub)
	if err != nil {
		return AlignedComparison{}, err
	}
	if view == models.ViewOriginal {
		sub = models.SubNone
	}

	out := AlignedComparison{
		View:    view,
		Sub:     sub,
		Range:   r,
		Entries: make([]AlignedEntry, 0, len(selected)),
	}

	for i, ns := range selected {
		freq := InferFrequency(ns.Series)

		transformed, err := Transform(ns.Series, kind, freq)
		if err != nil {
			out.Warnings = append(out.Warnings, EntryWarning{
				Label:    ns.Label,
				Position: i,
				Err:      err,
				Message:  err.Error(),
			})
			continue
		}

		display := transformed.Truncate(r)
		out.Entries = append(out.Entries, AlignedEntry{
			Label:          ns.Label,
			Position:       i,
			Axis:           AxisFor(i),
			Color:          ColorFor(i),
			Frequency:      freq,
			Transformation: kind,
			Series:         display,
			Summary:        Summarize(display),
		})
	}

	return out, nil
}
