package detect

import (
	"sort"
)

// Box is an axis-aligned rectangle in pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 float32
}

func (b Box) area() float32 {
	w, h := b.X2-b.X1, b.Y2-b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU is the intersection over union of two boxes, 0 when either is empty.
func IoU(a, b Box) float32 {
	inter := Box{
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
		X2: min(a.X2, b.X2),
		Y2: min(a.Y2, b.Y2),
	}.area()
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

type Detection struct {
	Class int     `json:"class"`
	Label string  `json:"label"`
	Score float32 `json:"score"`
	Box   Box     `json:"box"`
}

// Decode reads a YOLOv8 head laid out as [4+classes, anchors]: rows 0..3 are
// cx, cy, w, h in input pixels, the remaining rows are per-class scores.
// Anchors whose best class scores below conf are dropped.
func Decode(out []float32, rows, anchors int, conf float32) []Detection {
	if rows <= 4 || len(out) < rows*anchors {
		return nil
	}
	var dets []Detection
	for i := 0; i < anchors; i++ {
		best, score := -1, float32(0)
		for c := 4; c < rows; c++ {
			if s := out[c*anchors+i]; s > score {
				best, score = c-4, s
			}
		}
		if best < 0 || score < conf {
			continue
		}
		cx, cy := out[i], out[anchors+i]
		w, h := out[2*anchors+i], out[3*anchors+i]
		dets = append(dets, Detection{
			Class: best,
			Score: score,
			Box:   Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2},
		})
	}
	return dets
}

// NMS keeps the highest scoring detection of every overlapping group of the
// same class. The result is sorted by descending score.
func NMS(dets []Detection, iou float32) []Detection {
	sorted := append([]Detection(nil), dets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	kept := make([]Detection, 0, len(sorted))
	for _, d := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Class == d.Class && IoU(k.Box, d.Box) > iou {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}

// Rescale maps boxes from the square network input back onto a w x h source
// image and clamps them to its bounds.
func Rescale(dets []Detection, inputSize, w, h int) {
	sx := float32(w) / float32(inputSize)
	sy := float32(h) / float32(inputSize)
	for i := range dets {
		b := &dets[i].Box
		b.X1 = clamp(b.X1*sx, float32(w))
		b.X2 = clamp(b.X2*sx, float32(w))
		b.Y1 = clamp(b.Y1*sy, float32(h))
		b.Y2 = clamp(b.Y2*sy, float32(h))
	}
}

func clamp(v, hi float32) float32 {
	return min(max(v, 0), hi)
}
