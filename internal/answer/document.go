package answer

import "strings"

// Kind identifies how a document's text was produced.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindAudio   Kind = "audio"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

// ParseKind maps a stored kind label to a Kind. Unrecognised labels are KindUnknown.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPDF:
		return KindPDF
	case KindAudio:
		return KindAudio
	case KindVideo:
		return KindVideo
	default:
		return KindUnknown
	}
}

// Timed reports whether documents of this kind carry transcript timing.
func (k Kind) Timed() bool { return k == KindAudio || k == KindVideo }

// Segment is a time-aligned transcript fragment. Start and End are seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Document is the snapshot of extracted content questions are answered against.
// Segments are chronological.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Kind       Kind      `json:"kind"`
	Text       string    `json:"text"`
	Segments   []Segment `json:"segments"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
}

// HasContext reports whether d holds any text to answer from.
func (d *Document) HasContext() bool {
	return d != nil && d.Text != ""
}

// Timed reports whether timestamps can be located for d.
func (d *Document) Timed() bool {
	return d != nil && d.Kind.Timed() && len(d.Segments) > 0
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d.Segments != nil {
		segs := make([]Segment, len(d.Segments))
		copy(segs, d.Segments)
		d.Segments = segs
	}
	return d
}
