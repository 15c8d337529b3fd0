package executor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"time"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// SplitImageExecutor cuts one image into a rows x cols grid of tiles.
type SplitImageExecutor struct{}

func (e *SplitImageExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	rows := req.Step.IntParam("rows", 2)
	cols := req.Step.IntParam("cols", 2)
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("split_image: rows and cols must be positive, got %dx%d", rows, cols)
	}
	if req.Input.IsList() || req.Input.Ref == "" {
		return nil, fmt.Errorf("split_image: step %q needs a single image input", req.Step.Name)
	}
	if req.Workspace == nil || req.Workspace.Store == nil {
		return nil, fmt.Errorf("split_image: step %q has no output directory", req.Step.Name)
	}

	src, err := decodeImage(req.Input.Ref)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	if b.Dx() < cols || b.Dy() < rows {
		return nil, fmt.Errorf("split_image: %dx%d image too small for %dx%d grid", b.Dx(), b.Dy(), cols, rows)
	}

	tileW, tileH := b.Dx()/cols, b.Dy()/rows
	var tiles []string
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rect := image.Rect(0, 0, tileW, tileH)
			tile := image.NewRGBA(rect)
			origin := image.Pt(b.Min.X+c*tileW, b.Min.Y+r*tileH)
			draw.Draw(tile, rect, src, origin, draw.Src)

			var buf bytes.Buffer
			if err := png.Encode(&buf, tile); err != nil {
				return nil, fmt.Errorf("encoding tile %d: %w", len(tiles)+1, err)
			}
			path, err := req.Workspace.Store.Write(ctx, OutputKey(req.Step, ".png", r*cols+c+1), buf.Bytes())
			if err != nil {
				return nil, err
			}
			tiles = append(tiles, path)
		}
	}

	return &Result{
		Output:   types.List(types.MediaImage, tiles),
		Duration: time.Since(start),
		Metadata: map[string]any{"rows": rows, "cols": cols, "deterministic": true},
	}, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", path, err)
	}
	return img, nil
}
