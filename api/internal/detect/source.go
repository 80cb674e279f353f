package detect

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type SourceKind int

const (
	SourceImage SourceKind = iota
	SourceDir
	SourceVideo
	SourceCamera
)

func (k SourceKind) String() string {
	switch k {
	case SourceImage:
		return "image"
	case SourceDir:
		return "dir"
	case SourceVideo:
		return "video"
	case SourceCamera:
		return "camera"
	}
	return "unknown"
}

type Source struct {
	Kind   SourceKind
	Path   string
	Camera int
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// ParseSource accepts a camera index ("0"), an image file, a directory of
// images, or anything else ffmpeg can open as video (files, rtsp/http URLs).
func ParseSource(s string) (Source, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Source{}, errors.New("empty source")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return Source{}, errors.Errorf("invalid camera index %d", n)
		}
		return Source{Kind: SourceCamera, Camera: n, Path: fmt.Sprintf("/dev/video%d", n)}, nil
	}
	if strings.Contains(s, "://") {
		return Source{Kind: SourceVideo, Path: s}, nil
	}
	st, err := os.Stat(s)
	if err != nil {
		return Source{}, errors.Wrap(err, "source")
	}
	if st.IsDir() {
		return Source{Kind: SourceDir, Path: s}, nil
	}
	if imageExts[strings.ToLower(filepath.Ext(s))] {
		return Source{Kind: SourceImage, Path: s}, nil
	}
	return Source{Kind: SourceVideo, Path: s}, nil
}

// Frame is one decoded image with the name its annotated copy is saved as.
type Frame struct {
	Name  string
	Image image.Image
}

var errStop = errors.New("stop")

// Frames calls fn for every frame of src, stopping after maxFrames when it
// is positive or when fn returns an error.
func Frames(ctx context.Context, src Source, maxFrames int, fn func(Frame) error) error {
	count := 0
	emit := func(f Frame) error {
		if maxFrames > 0 && count >= maxFrames {
			return errStop
		}
		count++
		return fn(f)
	}

	var err error
	switch src.Kind {
	case SourceImage:
		err = imageFrames(ctx, []string{src.Path}, emit)
	case SourceDir:
		var paths []string
		paths, err = listImages(src.Path)
		if err == nil {
			err = imageFrames(ctx, paths, emit)
		}
	case SourceVideo, SourceCamera:
		err = streamFrames(ctx, src, emit)
	default:
		err = errors.Errorf("unsupported source kind %v", src.Kind)
	}
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read source dir")
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func imageFrames(ctx context.Context, paths []string, emit func(Frame) error) error {
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := loadImage(p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) + ".jpg"
		if err := emit(Frame{Name: name, Image: img}); err != nil {
			return err
		}
	}
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

// streamArgs returns the ffmpeg input options for src.
func streamArgs(src Source) ffmpeg.KwArgs {
	if src.Kind == SourceCamera {
		return ffmpeg.KwArgs{"f": "v4l2"}
	}
	return ffmpeg.KwArgs{}
}

// streamFrames pipes the source through ffmpeg as a stream of JPEGs and
// decodes them one by one.
func streamFrames(parent context.Context, src Source, emit func(Frame) error) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		stream := ffmpeg.Input(src.Path, streamArgs(src)).
			Output("pipe:", ffmpeg.KwArgs{"format": "image2pipe", "vcodec": "mjpeg", "q:v": 2})
		stream.Context = ctx
		err := stream.WithOutput(pw).Run()
		pw.CloseWithError(err)
		done <- err
	}()

	r := bufio.NewReader(pr)
	base := strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
	var emitErr, decodeErr error
	for i := 0; ; i++ {
		img, err := jpeg.Decode(r)
		if err != nil {
			decodeErr = err
			break
		}
		if err := emit(Frame{Name: fmt.Sprintf("%s_%06d.jpg", base, i), Image: img}); err != nil {
			emitErr = err
			break
		}
	}

	cancel()
	pr.Close()
	runErr := <-done

	switch {
	case emitErr != nil:
		return emitErr
	case parent.Err() != nil:
		return parent.Err()
	case runErr != nil:
		return errors.Wrap(runErr, "ffmpeg")
	case decodeErr != nil && !errors.Is(decodeErr, io.EOF) && !errors.Is(decodeErr, io.ErrUnexpectedEOF):
		return errors.Wrap(decodeErr, "decode frame")
	}
	return nil
}
