// Package detect runs a YOLOv8 ONNX export over images, directories, video
// files or cameras and saves annotated frames.
package detect

import (
	"context"
	"image"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// DefaultSaveDir is relative to the working directory.
var DefaultSaveDir = filepath.Join("runs", "detect", "predict")

// Default thresholds for the CLI flags. Options takes Conf and IoU as given,
// so zero is a valid threshold.
const (
	DefaultConf = 0.25
	DefaultIoU  = 0.7
)

// Detector is implemented by *Model.
type Detector interface {
	Detect(img image.Image, conf, iou float32) ([]Detection, error)
}

type Options struct {
	SaveDir   string
	Conf      float32
	IoU       float32
	MaxFrames int
	NoSave    bool
}

// FrameResult is what Run reports for one frame.
type FrameResult struct {
	Frame      string      `json:"frame"`
	Saved      string      `json:"saved,omitempty"`
	Detections []Detection `json:"detections"`
}

type Runner struct {
	det  Detector
	opts Options
	log  *zap.Logger
}

func NewRunner(det Detector, opts Options, log *zap.Logger) *Runner {
	if opts.SaveDir == "" {
		opts.SaveDir = DefaultSaveDir
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{det: det, opts: opts, log: log}
}

// Run processes every frame of src synchronously. Results gathered before a
// failure are returned along with the error.
func (r *Runner) Run(ctx context.Context, src Source) ([]FrameResult, error) {
	var results []FrameResult
	err := Frames(ctx, src, r.opts.MaxFrames, func(f Frame) error {
		start := time.Now()
		dets, err := r.det.Detect(f.Image, r.opts.Conf, r.opts.IoU)
		if err != nil {
			return err
		}
		res := FrameResult{Frame: f.Name, Detections: dets}
		if !r.opts.NoSave {
			saved, err := Save(r.opts.SaveDir, f.Name, Annotate(f.Image, dets))
			if err != nil {
				return err
			}
			res.Saved = saved
		}
		results = append(results, res)

		r.log.Info("frame",
			zap.String("source", src.Kind.String()),
			zap.String("frame", f.Name),
			zap.Int("detections", len(dets)),
			zap.Strings("labels", labels(dets)),
			zap.Duration("took", time.Since(start)))
		return nil
	})
	return results, err
}

func labels(dets []Detection) []string {
	out := make([]string, len(dets))
	for i, d := range dets {
		out[i] = d.Label
	}
	return out
}
