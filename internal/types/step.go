// Package types holds shared data structures used across packages.
package types

import (
	"fmt"
	"sort"
)

// StepType selects which executor runs a step.
type StepType string

const (
	TextToText   StepType = "text_to_text"
	TextToImage  StepType = "text_to_image"
	ImageToImage StepType = "image_to_image"
	TextToVideo  StepType = "text_to_video"
	ImageToVideo StepType = "image_to_video"
	VideoToVideo StepType = "video_to_video"
	TextToSpeech StepType = "text_to_speech"
	Transcribe   StepType = "transcribe"
	ConcatVideos StepType = "concat_videos"
	SplitImage   StepType = "split_image"
)

type signature struct {
	in, out MediaType
}

var signatures = map[StepType]signature{
	TextToText:   {MediaText, MediaText},
	TextToImage:  {MediaText, MediaImage},
	ImageToImage: {MediaImage, MediaImage},
	TextToVideo:  {MediaText, MediaVideo},
	ImageToVideo: {MediaImage, MediaVideo},
	VideoToVideo: {MediaVideo, MediaVideo},
	TextToSpeech: {MediaText, MediaAudio},
	Transcribe:   {MediaAudio, MediaText},
	ConcatVideos: {MediaVideoList, MediaVideo},
	SplitImage:   {MediaImage, MediaImageList},
}

// Signature returns the input and output media types declared for a step type.
func Signature(t StepType) (in, out MediaType, ok bool) {
	s, ok := signatures[t]
	return s.in, s.out, ok
}

// KnownStepTypes returns every step type in the type table, sorted.
func KnownStepTypes() []StepType {
	out := make([]StepType, 0, len(signatures))
	for t := range signatures {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reserved parameter keys interpreted by the engine.
const (
	ParamParallelGroup  = "parallel_group"
	ParamOutputFilename = "output_filename"
	ParamRequired       = "required"
)

// StepSpec is a step as written in a pipeline document.
type StepSpec struct {
	Name       string         `yaml:"name" json:"name"`
	Type       StepType       `yaml:"type" json:"type"`
	Model      string         `yaml:"model,omitempty" json:"model,omitempty"`
	Params     map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	InputType  MediaType      `yaml:"input_type,omitempty" json:"input_type,omitempty"`
	OutputType MediaType      `yaml:"output_type,omitempty" json:"output_type,omitempty"`
}

// Step is a validated, immutable step descriptor. Values are produced by the
// chain builder; Params is a private copy and must not be modified.
type Step struct {
	Index      int
	Name       string
	Type       StepType
	Model      string
	Params     map[string]any
	InputType  MediaType
	OutputType MediaType
	Group      string
}

// Param returns a raw parameter value.
func (s Step) Param(key string) (any, bool) {
	v, ok := s.Params[key]
	return v, ok
}

// StringParam returns a parameter rendered as a string, or def when absent.
func (s Step) StringParam(key, def string) string {
	v, ok := s.Params[key]
	if !ok || v == nil {
		return def
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// IntParam returns an integer parameter, or def when absent or not numeric.
func (s Step) IntParam(key string, def int) int {
	switch v := s.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case uint64:
		return int(v)
	}
	return def
}

// FloatParam returns a numeric parameter as float64, or def.
func (s Step) FloatParam(key string, def float64) float64 {
	switch v := s.Params[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case uint64:
		return float64(v)
	}
	return def
}

// BoolParam returns a boolean parameter, or def when absent.
func (s Step) BoolParam(key string, def bool) bool {
	if v, ok := s.Params[key].(bool); ok {
		return v
	}
	return def
}

// CopyParams returns a shallow copy of m.
func CopyParams(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
