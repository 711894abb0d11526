// Package feed reads syndication sources: charset recovery, incremental
// entry parsing with cursor semantics, and per-feed cycle orchestration.
package feed

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DecodingReader converts a byte stream from a selectable character encoding
// into UTF-8. The encoding may be set or changed between reads; bytes already
// returned are unaffected. With no encoding (or utf-8) set, bytes pass
// through untouched. Malformed sequences are substituted, never an error:
// feed sources routinely mis-declare their charset.
type DecodingReader struct {
	mu      sync.Mutex
	src     io.Reader
	name    string
	decoder transform.Transformer
	raw     []byte
	out     []byte
	eof     bool
}

// NewDecodingReader wraps src in pass-through (utf-8) mode.
func NewDecodingReader(src io.Reader) *DecodingReader {
	return &DecodingReader{src: src}
}

// Encoding reports the canonical label currently in effect, "" for utf-8.
func (d *DecodingReader) Encoding() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// SetEncoding switches the decoder for all bytes not yet read. Known aliases
// are folded to one canonical label; utf-8 and the empty string restore
// pass-through mode. An unknown label leaves the current decoder in place.
func (d *DecodingReader) SetEncoding(name string) error {
	label := CanonicalEncoding(name)

	d.mu.Lock()
	defer d.mu.Unlock()

	if label == "" {
		d.name = ""
		d.decoder = nil
		return nil
	}
	if label == d.name {
		return nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	d.name = label
	d.decoder = enc.NewDecoder().Transformer
	return nil
}

// CanonicalEncoding folds case and known aliases; utf-8 maps to "".
func CanonicalEncoding(name string) string {
	label := strings.ToLower(strings.TrimSpace(name))
	switch label {
	case "", "utf8", "utf-8":
		return ""
	case "windows1251", "win1251":
		return "windows-1251"
	}
	return label
}

func (d *DecodingReader) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(p) == 0 {
		return 0, nil
	}

	for {
		if len(d.out) > 0 {
			n := copy(p, d.out)
			d.out = d.out[n:]
			return n, nil
		}

		if d.decoder == nil {
			// Pass-through: drain any bytes buffered under a previous
			// decoder before touching the source again.
			if len(d.raw) > 0 {
				n := copy(p, d.raw)
				d.raw = d.raw[n:]
				return n, nil
			}
			if d.eof {
				return 0, io.EOF
			}
			return d.src.Read(p)
		}

		if len(d.raw) == 0 && !d.eof {
			buf := make([]byte, 4096)
			n, err := d.src.Read(buf)
			d.raw = append(d.raw, buf[:n]...)
			if err == io.EOF {
				d.eof = true
			} else if err != nil {
				return 0, err
			}
		}

		if len(d.raw) == 0 && d.eof {
			return 0, io.EOF
		}

		// A destination shorter than one decoded rune would stall the
		// transformer with ErrShortDst; decode into a spill buffer and
		// hand the bytes out across subsequent reads.
		dst := p
		spill := len(p) < utf8.UTFMax
		if spill {
			dst = make([]byte, 2*utf8.UTFMax)
		}

		nDst, nSrc, err := d.decoder.Transform(dst, d.raw, d.eof)
		d.raw = d.raw[nSrc:]
		if err == transform.ErrShortDst || err == transform.ErrShortSrc {
			err = nil
		}
		if nDst > 0 {
			if spill {
				n := copy(p, dst[:nDst])
				d.out = append(d.out, dst[n:nDst]...)
				return n, nil
			}
			return nDst, nil
		}
		if err != nil {
			return 0, err
		}
		// No output yet (partial multi-byte sequence); read more input.
		if d.eof && nSrc == 0 {
			return 0, io.EOF
		}
	}
}
