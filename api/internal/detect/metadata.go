package detect

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Metadata describes the exported network. A zero value is completed with
// the YOLOv8 COCO defaults by LoadMetadata.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

const defaultImageSize = 640

// DefaultMetadata matches yolov8n exported to ONNX at 640x640.
func DefaultMetadata() Metadata {
	return Metadata{
		InputShape:  []int64{1, 3, defaultImageSize, defaultImageSize},
		OutputShape: []int64{1, 4 + int64(len(cocoClasses)), 8400},
		Classes:     append([]string(nil), cocoClasses...),
		ImageSize:   defaultImageSize,
	}
}

// LoadMetadata reads a metadata JSON file. An empty path yields the defaults;
// fields missing from the file are derived from the ones present.
func LoadMetadata(path string) (Metadata, error) {
	if path == "" {
		return DefaultMetadata(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "read metadata")
	}
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metadata{}, errors.Wrapf(err, "parse metadata %s", path)
	}
	return m.complete()
}

func (m Metadata) complete() (Metadata, error) {
	if len(m.Classes) == 0 {
		m.Classes = append([]string(nil), cocoClasses...)
	}
	if m.ImageSize == 0 {
		if len(m.InputShape) == 4 {
			m.ImageSize = int(m.InputShape[3])
		} else {
			m.ImageSize = defaultImageSize
		}
	}
	if len(m.InputShape) == 0 {
		m.InputShape = []int64{1, 3, int64(m.ImageSize), int64(m.ImageSize)}
	}
	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, 4 + int64(len(m.Classes)), 8400}
	}
	if len(m.InputShape) != 4 || m.InputShape[1] != 3 {
		return m, errors.Errorf("input shape must be [1,3,H,W], got %v", m.InputShape)
	}
	if len(m.OutputShape) != 3 {
		return m, errors.Errorf("output shape must be [1,4+classes,anchors], got %v", m.OutputShape)
	}
	if rows := m.OutputShape[1]; rows != 4+int64(len(m.Classes)) {
		return m, errors.Errorf("output has %d rows but %d classes are named", rows, len(m.Classes))
	}
	return m, nil
}

func (m Metadata) label(class int) string {
	if class >= 0 && class < len(m.Classes) {
		return m.Classes[class]
	}
	return "unknown"
}

var cocoClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}
