package extraction

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
)

// maxInflatedStream caps a single decompressed stream
const maxInflatedStream = 16 << 20

// dictLookback is how far before a stream keyword its dictionary is searched for
const dictLookback = 1024

// DirectExtractor scans the raw file for content streams without building the
// object graph. It recovers text from files whose cross-reference table is too
// damaged for the layout tier.
type DirectExtractor struct {
	logger arbor.ILogger
}

var _ interfaces.PageTextExtractor = (*DirectExtractor)(nil)

func NewDirectExtractor(logger arbor.ILogger) *DirectExtractor {
	return &DirectExtractor{logger: logger}
}

func (e *DirectExtractor) Method() models.ExtractionMethod {
	return models.ExtractionDirectText
}

// ExtractPages returns one entry per text-bearing content stream, in file order.
// maxPages bounds the number of streams returned.
func (e *DirectExtractor) ExtractPages(ctx context.Context, pdf []byte, maxPages int) ([]string, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(pdf, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, fmt.Errorf("missing PDF header")
	}

	var pages []string
	skipped := 0
	pos := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if maxPages > 0 && len(pages) >= maxPages {
			break
		}

		dict, data, next, ok := nextStream(pdf, pos)
		if !ok {
			break
		}
		pos = next

		if bytes.Contains(dict, []byte("/Image")) || bytes.Contains(dict, []byte("/XRef")) {
			continue
		}

		content := data
		if bytes.Contains(dict, []byte("/FlateDecode")) {
			inflated, err := inflate(data)
			if err != nil {
				skipped++
				continue
			}
			content = inflated
		} else if bytes.Contains(dict, []byte("/Filter")) {
			// only Flate is supported here
			skipped++
			continue
		}

		if !bytes.Contains(content, []byte("BT")) {
			continue
		}
		if text := decodeContentStream(content); text != "" {
			pages = append(pages, text)
		}
	}

	e.logger.Debug().
		Int("streams", len(pages)).
		Int("skipped", skipped).
		Msg("Direct text scan complete")

	return pages, nil
}

// nextStream locates the next stream ... endstream pair at or after pos and
// returns its dictionary bytes, its raw data and the offset after endstream.
func nextStream(pdf []byte, pos int) (dict, data []byte, next int, ok bool) {
	for pos < len(pdf) {
		idx := bytes.Index(pdf[pos:], []byte("stream"))
		if idx < 0 {
			return nil, nil, len(pdf), false
		}
		kw := pos + idx
		pos = kw + len("stream")

		// skip "endstream" matches
		if kw >= 3 && string(pdf[kw-3:kw]) == "end" {
			continue
		}

		start := pos
		if start < len(pdf) && pdf[start] == '\r' {
			start++
		}
		if start < len(pdf) && pdf[start] == '\n' {
			start++
		}

		end := bytes.Index(pdf[start:], []byte("endstream"))
		if end < 0 {
			return nil, nil, len(pdf), false
		}
		end += start

		dictStart := kw - dictLookback
		if dictStart < 0 {
			dictStart = 0
		}
		header := pdf[dictStart:kw]
		if open := bytes.LastIndex(header, []byte("<<")); open >= 0 {
			header = header[open:]
		}

		return header, bytes.TrimRight(pdf[start:end], "\r\n"), end + len("endstream"), true
	}
	return nil, nil, len(pdf), false
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxInflatedStream))
	if err != nil && len(out) == 0 {
		return nil, err
	}
	// truncated streams still yield usable text
	return out, nil
}
