// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"encoding/xml"
	"io"

	"mellium.im/jabber/internal/decl"
	"mellium.im/jabber/stream"
)

// EventKind tags the events produced by a Decoder.
type EventKind uint8

// A list of event kinds.
const (
	// StreamStart is the opening stream header sent by the server.
	StreamStart EventKind = iota

	// StreamElement is any complete top level element other than a stream
	// error.
	StreamElement

	// StreamErrorEvent is a <stream:error/> element.
	StreamErrorEvent

	// StreamEnd is the closing </stream:stream> tag.
	StreamEnd
)

func (k EventKind) String() string {
	switch k {
	case StreamStart:
		return "stream-start"
	case StreamElement:
		return "element"
	case StreamErrorEvent:
		return "stream-error"
	case StreamEnd:
		return "stream-end"
	}
	return "unknown"
}

// Event is a single unit of input read from the stream.
type Event struct {
	Kind EventKind

	// Info is set for StreamStart events.
	Info stream.Info

	// Element is set for StreamElement and StreamErrorEvent events.
	Element Element

	// Err is the parsed stream error for StreamErrorEvent events.
	Err stream.Error
}

// Decoder reads events from an XML stream one top level element at a time.
// A new Decoder must be created every time the stream is restarted.
type Decoder struct {
	r xml.TokenReader
}

// NewDecoder returns a Decoder that reads from r.
// If r does not implement io.ByteReader, the underlying xml.Decoder buffers
// it, so no other reads should be made from r between stream restarts.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: decl.Skip(xml.NewDecoder(r))}
}

// Next blocks until the next event is available.
// XML declarations, whitespace and unmatched end tokens between top level
// elements are skipped.
// A malformed stream header results in a stream.Error.
func (d *Decoder) Next() (Event, error) {
	for {
		tok, err := d.r.Token()
		if err != nil {
			return Event{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "stream" && t.Name.Space == stream.NS {
				ev := Event{Kind: StreamStart}
				err = ev.Info.FromStartElement(t)
				return ev, err
			}
			el, err := readElement(d.r, t)
			if err != nil {
				return Event{}, err
			}
			if t.Name.Local == "error" && t.Name.Space == stream.NS {
				ev := Event{Kind: StreamErrorEvent, Element: el}
				if err := el.Decode(&ev.Err); err != nil || ev.Err.Err == "" {
					ev.Err.Err = stream.UndefinedCondition.Err
				}
				return ev, nil
			}
			return Event{Kind: StreamElement, Element: el}, nil
		case xml.EndElement:
			if t.Name.Local == "stream" && t.Name.Space == stream.NS {
				return Event{Kind: StreamEnd}, nil
			}
		}
	}
}
