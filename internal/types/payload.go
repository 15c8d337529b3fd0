package types

// MediaType is the semantic type tag carried by step inputs and outputs.
type MediaType string

const (
	MediaText      MediaType = "text"
	MediaImage     MediaType = "image"
	MediaVideo     MediaType = "video"
	MediaAudio     MediaType = "audio"
	MediaImageList MediaType = "image_list"
	MediaVideoList MediaType = "video_list"
	MediaAudioList MediaType = "audio_list"
)

var listElems = map[MediaType]MediaType{
	MediaImageList: MediaImage,
	MediaVideoList: MediaVideo,
	MediaAudioList: MediaAudio,
}

// Valid reports whether m is a known media type.
func (m MediaType) Valid() bool {
	switch m {
	case MediaText, MediaImage, MediaVideo, MediaAudio:
		return true
	}
	_, ok := listElems[m]
	return ok
}

// IsList reports whether m is list-shaped.
func (m MediaType) IsList() bool {
	_, ok := listElems[m]
	return ok
}

// Elem returns the element type of a list type, or m itself for single types.
func (m MediaType) Elem() MediaType {
	if e, ok := listElems[m]; ok {
		return e
	}
	return m
}

// ListOf returns the list type whose elements are m. Text has no list form
// and returns "".
func ListOf(m MediaType) MediaType {
	if m.IsList() {
		return m
	}
	for l, e := range listElems {
		if e == m {
			return l
		}
	}
	return ""
}

// Payload is the value passed between steps. Exactly one of Ref (single item
// or text body) and Refs (list-shaped) is meaningful, selected by Type.
type Payload struct {
	Type     MediaType      `json:"type"`
	Ref      string         `json:"ref,omitempty"`
	Refs     []string       `json:"refs,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Single builds a single-item payload such as one image path or video URL.
func Single(t MediaType, ref string) Payload {
	return Payload{Type: t, Ref: ref}
}

// Text builds a text payload.
func Text(s string) Payload {
	return Payload{Type: MediaText, Ref: s}
}

// List builds a list-shaped payload. t may be either the list type or its
// element type.
func List(t MediaType, refs []string) Payload {
	cp := make([]string, len(refs))
	copy(cp, refs)
	return Payload{Type: ListOf(t), Refs: cp}
}

// IsList reports whether the payload is list-shaped.
func (p Payload) IsList() bool { return p.Type.IsList() }

// IsZero reports whether p carries nothing.
func (p Payload) IsZero() bool {
	return p.Type == "" && p.Ref == "" && len(p.Refs) == 0
}

// Items returns the payload as a list, wrapping a single item into a
// one-element slice. Executors use this to accept a single item where a list
// is expected.
func (p Payload) Items() []string {
	if p.IsList() {
		out := make([]string, len(p.Refs))
		copy(out, p.Refs)
		return out
	}
	if p.Ref == "" {
		return nil
	}
	return []string{p.Ref}
}
