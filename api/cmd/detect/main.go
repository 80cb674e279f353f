package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"fetal-health/api/internal/detect"
	"fetal-health/api/internal/logger"
)

const (
	flagModel     = "model"
	flagSource    = "source"
	flagSaveDir   = "save-dir"
	flagConf      = "conf"
	flagIoU       = "iou"
	flagMaxFrames = "max-frames"
	flagMetadata  = "metadata"
	flagOnnxLib   = "onnx-lib"
	flagNoSave    = "no-save"
	flagLogLevel  = "log-level"
)

func main() {
	app := &cli.App{
		Name:  "detect",
		Usage: "run a YOLOv8 ONNX model over a camera, video, image or directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagModel, Value: "yolov8n.onnx", Usage: "path to the ONNX export"},
			&cli.StringFlag{Name: flagSource, Value: "0", Usage: "camera index, video file or URL, image file or directory"},
			&cli.StringFlag{Name: flagSaveDir, Value: detect.DefaultSaveDir, Usage: "where annotated frames are written"},
			&cli.Float64Flag{Name: flagConf, Value: detect.DefaultConf, Usage: "minimum class score"},
			&cli.Float64Flag{Name: flagIoU, Value: detect.DefaultIoU, Usage: "NMS IoU threshold"},
			&cli.IntFlag{Name: flagMaxFrames, Usage: "stop after this many frames (0 = all)"},
			&cli.StringFlag{Name: flagMetadata, Usage: "JSON with classes and tensor shapes (default: COCO-80 at 640)"},
			&cli.StringFlag{Name: flagOnnxLib, EnvVars: []string{"ONNXRUNTIME_LIB"}, Usage: "path to the onnxruntime shared library"},
			&cli.BoolFlag{Name: flagNoSave, Usage: "do not write annotated frames"},
			&cli.StringFlag{Name: flagLogLevel, Value: "info", EnvVars: []string{"LOG_LEVEL"}},
		},
		Action: runAction,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "detect:", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	log, err := logger.New(c.String(flagLogLevel))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	src, err := detect.ParseSource(c.String(flagSource))
	if err != nil {
		return err
	}
	meta, err := detect.LoadMetadata(c.String(flagMetadata))
	if err != nil {
		return err
	}
	model, err := detect.NewModel(c.String(flagModel), c.String(flagOnnxLib), meta)
	if err != nil {
		return err
	}
	defer model.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := detect.NewRunner(model, detect.Options{
		SaveDir:   c.String(flagSaveDir),
		Conf:      float32(c.Float64(flagConf)),
		IoU:       float32(c.Float64(flagIoU)),
		MaxFrames: c.Int(flagMaxFrames),
		NoSave:    c.Bool(flagNoSave),
	}, log)

	log.Info("running",
		zap.String("model", c.String(flagModel)),
		zap.String("source", src.Path),
		zap.Stringer("kind", src.Kind),
		zap.Int("classes", len(model.Metadata().Classes)))
	results, err := runner.Run(ctx, src)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
