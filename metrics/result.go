package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Epsilon is added to every per-substrate union so that substrates absent
// from the whole dataset score ~0 instead of dividing by zero.
const Epsilon = 1e-15

// DegenerateInputError reports a dataset that cannot produce an overall IoU:
// no images, or no annotated pixel in any image.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: %s", e.Reason)
}

// SubstrateScore is the final score of one substrate.
type SubstrateScore struct {
	Name         string  `json:"name"`
	IoU          float64 `json:"iou"`
	Intersection int64   `json:"intersection"`
	Union        int64   `json:"union"`
	// Present is false when the substrate never occurs in ground truth or
	// prediction. Its IoU is then ~0 rather than undefined.
	Present bool `json:"present"`
}

// Result holds the final IoU statistics of a run.
type Result struct {
	// Substrates in catalog order.
	Substrates []SubstrateScore `json:"substrates"`
	// PerSubstrate maps substrate name to IoU.
	PerSubstrate map[string]float64 `json:"per_substrate"`
	// Overall is the micro-average: summed intersections over summed unions.
	Overall float64 `json:"overall"`
	// MacroIoU is the mean of the per-substrate IoUs of present substrates.
	// Reported for comparison only.
	MacroIoU float64 `json:"macro_iou"`
	// Images is the number of ground-truth images scored.
	Images int `json:"images"`
	// UnknownSubstrates counts polygons whose substrate is not in the
	// catalog, per input. Filled in by the caller that parsed the inputs.
	UnknownSubstrates map[string]int `json:"unknown_substrates,omitempty"`
}

// Finalize turns accumulated counts into per-substrate and overall IoU.
//
// The overall IoU is a micro-average over all substrates and images, not
// the mean of the per-substrate values.
//
// Returns:
//   - *Result: The scores.
//   - error: *DegenerateInputError when no images were scored or the total
//     union is zero.
func Finalize(a *Accumulator) (*Result, error) {
	if a.Images() == 0 {
		return nil, &DegenerateInputError{Reason: "no images to score"}
	}
	total := a.Totals()
	if total.Union == 0 {
		return nil, &DegenerateInputError{Reason: fmt.Sprintf("no substrate pixels in %d images", a.Images())}
	}

	res := &Result{
		Substrates:   make([]SubstrateScore, 0, len(a.counts)),
		PerSubstrate: make(map[string]float64, len(a.counts)),
		Overall:      float64(total.Intersection) / float64(total.Union),
		Images:       a.Images(),
	}

	present := make([]float64, 0, len(a.counts))
	for _, s := range a.catalog.Substrates() {
		c := a.counts[s.Index-1]
		iou := float64(c.Intersection) / (float64(c.Union) + Epsilon)
		res.Substrates = append(res.Substrates, SubstrateScore{
			Name:         s.Name,
			IoU:          iou,
			Intersection: c.Intersection,
			Union:        c.Union,
			Present:      c.Union > 0,
		})
		res.PerSubstrate[s.Name] = iou
		if c.Union > 0 {
			present = append(present, iou)
		}
	}
	res.MacroIoU = stat.Mean(present, nil)

	return res, nil
}
