package detect

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Model wraps an ONNX Runtime session over a YOLOv8 export. Run is not
// reentrant, so Detect serialises callers.
type Model struct {
	mu     sync.Mutex
	meta   Metadata
	sess   *ort.AdvancedSession
	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]
}

// NewModel initialises the runtime and opens modelPath. libPath points at
// the onnxruntime shared library; empty uses the platform default.
func NewModel(modelPath, libPath string, meta Metadata) (*Model, error) {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "initialize onnxruntime")
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	sess, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"}, []string{"output0"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "load model %s", modelPath)
	}

	return &Model{meta: meta, sess: sess, input: input, output: output}, nil
}

func (m *Model) Metadata() Metadata { return m.meta }

// Detect runs one image through the network and returns boxes in the
// image's own coordinates.
func (m *Model) Detect(img image.Image, conf, iou float32) ([]Detection, error) {
	size := m.meta.ImageSize
	data := Preprocess(img, size)

	m.mu.Lock()
	copy(m.input.GetData(), data)
	if err := m.sess.Run(); err != nil {
		m.mu.Unlock()
		return nil, errors.Wrap(err, "inference")
	}
	raw := append([]float32(nil), m.output.GetData()...)
	m.mu.Unlock()

	rows, anchors := int(m.meta.OutputShape[1]), int(m.meta.OutputShape[2])
	dets := NMS(Decode(raw, rows, anchors, conf), iou)
	for i := range dets {
		dets[i].Label = m.meta.label(dets[i].Class)
	}
	b := img.Bounds()
	Rescale(dets, size, b.Dx(), b.Dy())
	return dets, nil
}

func (m *Model) Close() {
	if m.sess != nil {
		m.sess.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
	ort.DestroyEnvironment()
}
