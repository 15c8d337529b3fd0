package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// Synthetic produces deterministic placeholder artifacts without calling any
// service. Identical requests produce byte-identical files. It backs dry runs.
type Synthetic struct {
	Dir string
}

func (s *Synthetic) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := requestKey(req)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		HasCost: true,
		Raw:     map[string]any{"synthetic": true, "seed": key[:8]},
	}

	switch req.Output.Elem() {
	case types.MediaText:
		resp.Text = fmt.Sprintf("[%s] %s", req.Model, req.Prompt)
		return resp, nil
	case types.MediaImage:
		path, err := s.writeImage(key)
		if err != nil {
			return nil, err
		}
		resp.Artifacts = []string{path}
	default:
		ext := ".mp4"
		if req.Output.Elem() == types.MediaAudio {
			ext = ".wav"
		}
		path := filepath.Join(s.Dir, key[:16]+ext)
		if err := s.write(path, []byte("synthetic "+string(req.Kind)+" "+key+"\n")); err != nil {
			return nil, err
		}
		resp.Artifacts = []string{path}
		resp.Seconds = 5
	}
	return resp, nil
}

func (s *Synthetic) writeImage(key string) (string, error) {
	path := filepath.Join(s.Dir, key[:16]+".png")
	sum, _ := hex.DecodeString(key[:6])
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: sum[0] ^ uint8(x*4), G: sum[1] ^ uint8(y*4), B: sum[2], A: 255})
		}
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encoding synthetic image: %w", err)
	}
	return path, nil
}

func (s *Synthetic) write(path string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// requestKey hashes the request; json.Marshal sorts map keys so the result
// is stable.
func requestKey(req Request) (string, error) {
	data, err := json.Marshal(struct {
		Model  string
		Kind   types.StepType
		Prompt string
		Inputs []string
		Params map[string]any
	}{req.Model, req.Kind, req.Prompt, req.Inputs, req.Params})
	if err != nil {
		return "", fmt.Errorf("hashing request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
