// Package framing turns a raw byte stream into discrete NDJSON frames.
// Chunks may be split at arbitrary byte boundaries (mid-UTF-8 sequence,
// mid-JSON token); the decoder reconstructs logical lines exactly as if
// each had arrived whole.
package framing

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// DefaultMaxLineBytes caps a single completed line.
	DefaultMaxLineBytes = 1 << 20 // 1 MiB

	// DefaultMaxBufferBytes caps the unterminated partial-line buffer.
	// Kept above the line cap so one oversize-but-terminated line
	// produces a single error, not two.
	DefaultMaxBufferBytes = 2 << 20 // 2 MiB

	// previewBytes bounds how much offending content an error frame
	// carries. The whole error message stays well under 400 characters.
	previewBytes = 160
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Config bounds the decoder's memory use.
type Config struct {
	// MaxLineBytes is the largest completed line that will be parsed.
	// Longer lines produce a KindError frame. Zero means the default.
	MaxLineBytes int

	// MaxBufferBytes is the largest unterminated buffer tolerated
	// while waiting for a newline. Exceeding it produces a KindError
	// frame and purges the buffer. Zero means the default.
	MaxBufferBytes int
}

func (c Config) withDefaults() Config {
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = DefaultMaxLineBytes
	}
	if c.MaxBufferBytes <= 0 {
		c.MaxBufferBytes = DefaultMaxBufferBytes
	}
	return c
}

// Decoder is an incremental line framer. It implements io.Writer so a
// child process stream can be io.Copy'd straight into it. Not safe for
// concurrent use; each stream gets its own Decoder.
type Decoder struct {
	cfg  Config
	sink func(Frame)

	buf        []byte
	bomChecked bool
	offset     int64
}

// NewDecoder returns a Decoder that delivers frames to sink in arrival
// order. sink must not be nil.
func NewDecoder(cfg Config, sink func(Frame)) *Decoder {
	return &Decoder{cfg: cfg.withDefaults(), sink: sink}
}

// Write consumes a chunk. It always reports the full chunk as written;
// framing failures become KindError frames, never write errors, so the
// stream keeps decoding.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	d.stripBOM()

	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		// Recognize CRLF as a terminator too.
		line = bytes.TrimSuffix(line, []byte{'\r'})
		d.handleLine(line)
		d.offset += int64(i + 1)
		d.buf = d.buf[i+1:]
	}

	if len(d.buf) > d.cfg.MaxBufferBytes {
		d.sink(Frame{
			Kind: KindError,
			Err: fmt.Sprintf("buffer exceeded: %d unterminated bytes (limit %d) at offset %d: %s",
				len(d.buf), d.cfg.MaxBufferBytes, d.offset, preview(d.buf)),
		})
		// Purge so the next well-formed line parses from a clean
		// state instead of erroring forever.
		d.offset += int64(len(d.buf))
		d.buf = nil
	}

	return len(p), nil
}

// Close flushes a trailing unterminated line, if any. Call once when
// the stream reaches EOF.
func (d *Decoder) Close() error {
	if len(d.buf) > 0 {
		line := bytes.TrimSuffix(d.buf, []byte{'\r'})
		d.handleLine(line)
		d.offset += int64(len(d.buf))
		d.buf = nil
	}
	return nil
}

// Offset reports how many bytes have been fully consumed.
func (d *Decoder) Offset() int64 { return d.offset }

// stripBOM removes a single UTF-8 byte-order mark at the very start of
// the stream. The check stays pending while the first bytes are still a
// BOM prefix, so a BOM split across chunks is still stripped.
func (d *Decoder) stripBOM() {
	if d.bomChecked || len(d.buf) == 0 {
		return
	}
	if len(d.buf) < len(bom) {
		if bytes.HasPrefix(bom, d.buf) {
			return // could still become a BOM, wait for more bytes
		}
		d.bomChecked = true
		return
	}
	if bytes.HasPrefix(d.buf, bom) {
		d.buf = d.buf[len(bom):]
		d.offset += int64(len(bom))
	}
	d.bomChecked = true
}

func (d *Decoder) handleLine(line []byte) {
	if len(line) == 0 {
		return
	}

	if len(line) > d.cfg.MaxLineBytes {
		d.sink(Frame{
			Kind: KindError,
			Err: fmt.Sprintf("line too large: %d bytes (limit %d): %s",
				len(line), d.cfg.MaxLineBytes, preview(line)),
		})
		return
	}

	if gjson.ValidBytes(line) {
		parsed := gjson.ParseBytes(line)
		if parsed.IsObject() && parsed.Get("type").Type == gjson.String {
			d.sink(Frame{
				Kind:   KindObject,
				Type:   parsed.Get("type").String(),
				Object: append([]byte(nil), line...),
			})
			return
		}
	}

	d.sink(Frame{Kind: KindRawLine, Line: string(line)})
}

// preview returns an ellipsis-truncated, UTF-8-clean excerpt of data.
func preview(data []byte) string {
	if len(data) <= previewBytes {
		return strings.ToValidUTF8(string(data), "")
	}
	return strings.ToValidUTF8(string(data[:previewBytes]), "") + "…"
}
