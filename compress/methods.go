// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package compress provides the codecs used for XEP-0138: Stream Compression
// and XEP-0229: Stream Compression with LZW.
//
// Be advised: stream compression has many of the same security considerations
// as TLS compression (see RFC3749 §6).
package compress // import "mellium.im/jabber/compress"

import (
	"compress/zlib"
	"io"
	"sync"

	"mellium.im/legacy/compress"
)

// Namespaces used by stream compression.
const (
	NSFeatures = compress.NSFeatures
	NSProtocol = compress.NSProtocol
)

// Method is a stream compression method.
// Method names are those in the "Stream Compression Methods Registry"
// maintained by the XSF Editor.
type Method = compress.Method

var (
	// Zlib implements stream compression using the ZLIB format (RFC 1950).
	Zlib = Method{
		Name: "zlib",
		Wrapper: func(rw io.ReadWriter) (io.ReadWriter, error) {
			return &zlibDelayedSetup{raw: rw, zlibWriter: zlib.NewWriter(rw)}, nil
		},
	}

	// LZW implements stream compression using the Lempel-Ziv-Welch (DCLZ)
	// compressed data format.
	LZW = compress.LZW
)

// Methods lists the supported methods in order of preference.
var Methods = []Method{Zlib, LZW}

// Lookup returns the method with the given registry name.
func Lookup(name string) (Method, bool) {
	for _, m := range Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

type multiCloser []io.Closer

// Close calls every close method in the multiCloser and returns the last
// error.
func (mc multiCloser) Close() (err error) {
	for _, c := range mc {
		if e := c.Close(); e != nil {
			err = e
		}
	}
	return err
}

// zlibDelayedSetup defers creation of the zlib reader until the first read.
// The zlib reader reads the header from the connection as soon as it is
// created, but a client must send its new stream header before the server
// writes anything compressed.
type zlibDelayedSetup struct {
	wm, rm sync.Mutex

	raw        io.ReadWriter
	zlibWriter *zlib.Writer
	zlibReader io.ReadCloser
}

func (r *zlibDelayedSetup) readSetup() (err error) {
	if r.zlibReader == nil {
		r.zlibReader, err = zlib.NewReader(r.raw)
	}
	return err
}

// Write compresses p and flushes so that the peer can decode every stanza as
// soon as it is written.
func (r *zlibDelayedSetup) Write(p []byte) (n int, err error) {
	r.wm.Lock()
	defer r.wm.Unlock()
	if n, err = r.zlibWriter.Write(p); err != nil {
		return n, err
	}
	return n, r.zlibWriter.Flush()
}

func (r *zlibDelayedSetup) Read(p []byte) (n int, err error) {
	r.rm.Lock()
	defer r.rm.Unlock()
	if err = r.readSetup(); err != nil {
		return 0, err
	}
	return r.zlibReader.Read(p)
}

func (r *zlibDelayedSetup) Close() error {
	mc := multiCloser{}

	r.rm.Lock()
	defer r.rm.Unlock()
	if r.zlibReader != nil {
		mc = append(mc, r.zlibReader)
	}

	r.wm.Lock()
	defer r.wm.Unlock()
	if r.zlibWriter != nil {
		mc = append(mc, r.zlibWriter)
	}

	return mc.Close()
}
