// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"encoding/xml"

	"github.com/pkg/errors"
	"mellium.im/xmlstream"

	"mellium.im/jabber/compress"
	"mellium.im/jabber/internal/ns"
)

var compressionFeatures = [...]struct {
	f      StreamFeatureSet
	method string
}{
	{CompressZlib, compress.Zlib.Name},
	{CompressDCLZ, compress.LZW.Name},
}

// compressionMethod returns the preferred compression method offered by the
// server and supported by the transport, or the empty string if compression
// should not be negotiated.
func (c *Client) compressionMethod(f StreamFeatureSet) string {
	if !c.cfg.Compression || c.compressed {
		return ""
	}
	for _, m := range compressionFeatures {
		if f.Has(m.f) && c.t.CanCompress(m.method) {
			return m.method
		}
	}
	return ""
}

func (c *Client) startCompression(method string) {
	c.log.WithField("method", method).Debug("jabber: requesting stream compression")
	req := xmlstream.Wrap(
		xmlstream.Wrap(
			xmlstream.Token(xml.CharData(method)),
			xml.StartElement{Name: xml.Name{Local: "method"}},
		),
		xml.StartElement{Name: xml.Name{Space: ns.Compress, Local: "compress"}},
	)
	if c.sendControl(req) {
		c.compressor = method
		c.setNeg(negotiatingCompression)
	}
}

func (c *Client) handleCompression(el Element) bool {
	if el.Start.Name.Space != ns.Compress {
		return false
	}
	switch el.Start.Name.Local {
	case "compressed":
		if err := c.t.StartCompression(c.compressor); err != nil {
			c.disconnect(ConnIOError, errors.Wrap(err, "jabber: starting compression"))
			return true
		}
		c.compressed = true
		c.restart()
	case "failure":
		reason := "unknown"
		if children := el.Children(); len(children) > 0 {
			reason = children[0].Start.Name.Local
		}
		c.disconnect(ConnTLSFailed, errors.New("jabber: compression failed: "+reason))
	default:
		return false
	}
	return true
}
