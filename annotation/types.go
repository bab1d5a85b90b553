// Package annotation stores reviewer annotations attached to document pages.
//
// Each page has one document holding an ordered list of annotations and a
// content hash (serverPageSha) over that list. The hash is the version token
// for optimistic concurrency: updates name the hash they last observed and
// fail with a conflict if the page has moved on.
//
// Mutations on the same page are serialized by a keyed lock table so that the
// hash check and the persist step never interleave between two writers.
// Different pages proceed in parallel.
package annotation

import (
	"encoding/json"
	"regexp"

	"github.com/teranos/redpen/errors"
)

// Type is the closed set of annotation kinds.
type Type string

const (
	// TypeGeneral is a page-level comment
	TypeGeneral Type = "general"
	// TypeMain is the primary commentary on a text block
	TypeMain Type = "main"
	// TypeAnchored is a comment pinned to a point or block
	TypeAnchored Type = "anchored"
)

// Valid reports whether t belongs to the closed set.
func (t Type) Valid() bool {
	switch t {
	case TypeGeneral, TypeMain, TypeAnchored:
		return true
	}
	return false
}

// Coords is a 2-D anchor point, serialized as [x, y].
type Coords struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as a two-element array.
func (c Coords) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.X, c.Y})
}

// UnmarshalJSON accepts a two-element numeric array.
func (c *Coords) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Validationf("coords must be [x, y]: %v", err)
	}
	if len(pair) != 2 {
		return errors.Validationf("coords must have exactly two elements, got %d", len(pair))
	}
	c.X, c.Y = pair[0], pair[1]
	return nil
}

// Annotation is one reviewer note on a page.
// TargetBlock references a text-layer block id; it is not checked against
// the text layer here.
type Annotation struct {
	ID          string  `json:"id"`
	AnnType     Type    `json:"annType"`
	Text        string  `json:"text"`
	TargetBlock *string `json:"targetBlock,omitempty"`
	Coords      *Coords `json:"coords,omitempty"`
}

// Page is the persisted annotation document for one page id.
//
// ImageURL, OrigW and OrigH describe the scanned page image; the store never
// changes them. Top-level keys this type does not model survive a rewrite in
// Extra.
type Page struct {
	PageID        string       `json:"pageId"`
	ImageURL      string       `json:"imageUrl"`
	OrigW         float64      `json:"origW"`
	OrigH         float64      `json:"origH"`
	Annotations   []Annotation `json:"annotations"`
	ServerPageSha string       `json:"serverPageSha"`

	Extra map[string]json.RawMessage `json:"-"`
}

// pageFields are the keys Page decodes itself.
var pageFields = map[string]bool{
	"pageId":        true,
	"imageUrl":      true,
	"origW":         true,
	"origH":         true,
	"annotations":   true,
	"serverPageSha": true,
}

// pageJSON has Page's layout without its methods.
type pageJSON Page

// UnmarshalJSON decodes the known fields and keeps every other key in Extra.
func (p *Page) UnmarshalJSON(data []byte) error {
	var known pageJSON
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if pageFields[k] {
			continue
		}
		if known.Extra == nil {
			known.Extra = make(map[string]json.RawMessage)
		}
		known.Extra[k] = v
	}
	*p = Page(known)
	return nil
}

// MarshalJSON writes the known fields plus anything held in Extra.
func (p Page) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(pageJSON(p))
	if err != nil || len(p.Extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if !pageFields[k] {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// NewAnnotation carries the client-supplied fields of a create request.
type NewAnnotation struct {
	AnnType     Type
	Text        string
	TargetBlock *string
	Coords      *Coords
}

// Patch carries the mutable fields of an update request. Nil means unchanged.
type Patch struct {
	AnnType *Type
	Text    *string
	Coords  *Coords
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.AnnType == nil && p.Text == nil && p.Coords == nil
}

var pageIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidatePageID rejects ids that cannot be used as a file name.
func ValidatePageID(pageID string) error {
	if len(pageID) > 128 || !pageIDPattern.MatchString(pageID) {
		return errors.Validationf("invalid page id %q", pageID)
	}
	return nil
}

// validate checks the annotation invariants: closed type set, non-empty text,
// and at least one anchor.
func (a *Annotation) validate() error {
	if !a.AnnType.Valid() {
		return errors.WithHint(
			errors.Validationf("unknown annType %q", a.AnnType),
			"annType must be one of general, main, anchored")
	}
	if a.Text == "" {
		return errors.Validationf("text must not be empty")
	}
	if a.TargetBlock != nil && *a.TargetBlock == "" {
		return errors.Validationf("targetBlock must not be empty when present")
	}
	if a.TargetBlock == nil && a.Coords == nil {
		return errors.Validationf("annotation needs targetBlock or coords")
	}
	return nil
}

func (a Annotation) clone() Annotation {
	out := a
	if a.TargetBlock != nil {
		tb := *a.TargetBlock
		out.TargetBlock = &tb
	}
	if a.Coords != nil {
		c := *a.Coords
		out.Coords = &c
	}
	return out
}

func (p *Page) clone() *Page {
	out := &Page{
		PageID:        p.PageID,
		ImageURL:      p.ImageURL,
		OrigW:         p.OrigW,
		OrigH:         p.OrigH,
		ServerPageSha: p.ServerPageSha,
		Annotations:   make([]Annotation, len(p.Annotations)),
	}
	for i, a := range p.Annotations {
		out.Annotations[i] = a.clone()
	}
	if p.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
