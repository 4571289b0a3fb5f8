package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the document version written by this package.
const Version = 2

var ErrVersion = errors.New("snapshot: unsupported document version")

// A Document is the persisted state of every canvas of a process.
// Layer 0 (the paper) is never stored.
type Document struct {
	Version  int      `json:"version"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Canvases []Canvas `json:"canvases"`
}

type Canvas struct {
	ID         int         `json:"id"`
	LayerCount int         `json:"layer_count"` // drawable layers
	Layers     []LayerData `json:"layers"`
}

type LayerData struct {
	Index int    `json:"index"`
	Data  string `json:"data"`
}

// Canvas returns the canvas with the given id or nil.
func (d *Document) Canvas(id int) *Canvas {
	for i := range d.Canvases {
		if d.Canvases[i].ID == id {
			return &d.Canvases[i]
		}
	}

	return nil
}

// Marshal encodes d as indented JSON.
func Marshal(d *Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Unmarshal decodes a document. Entries for layer 0 or below are dropped.
func Unmarshal(b []byte) (*Document, error) {
	d := &Document{}
	if err := json.Unmarshal(b, d); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	// Version 1 documents carry no version field.
	if d.Version == 0 {
		d.Version = 1
	}
	if d.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, d.Version)
	}

	for i := range d.Canvases {
		c := &d.Canvases[i]
		kept := c.Layers[:0]
		for _, l := range c.Layers {
			if l.Index > 0 {
				kept = append(kept, l)
			}
		}
		c.Layers = kept
	}

	return d, nil
}
