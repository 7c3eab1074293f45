package eventfinda

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/core/ports"
	"github.com/eventures/eventures/internal/pkg/metrics"
)

// metaMember is the envelope member carrying result metadata.
const metaMember = "@attributes"

// Page is one parsed response page. Items stay undecoded until Records
// is iterated.
type Page struct {
	items    []json.RawMessage
	total    int
	hasTotal bool
	consumed bool
}

// Len returns the number of raw items in the result array.
func (p *Page) Len() int { return len(p.items) }

// Total returns the envelope's total match count, if reported.
func (p *Page) Total() (int, bool) { return p.total, p.hasTotal }

// Records yields one record per object item. Non-object or undecodable items
// are skipped. The sequence can be consumed only once.
func (p *Page) Records() iter.Seq[domain.RawEventRecord] {
	return func(yield func(domain.RawEventRecord) bool) {
		if p.consumed {
			return
		}
		p.consumed = true
		items := p.items
		p.items = nil
		for _, raw := range items {
			rec, ok := decodeRecord(raw)
			if !ok {
				metrics.RecordsSkipped.WithLabelValues("malformed_item").Inc()
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Parser implements ports.PageParser for Eventfinda responses.
type Parser struct{}

// Parse implements ports.PageParser.
func (Parser) Parse(body []byte) (ports.Page, error) {
	p, err := Parse(body)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Parse decodes a response envelope. The result array is the value of the
// envelope's last member, whatever its name; the envelope must have at least
// one metadata member before it.
func Parse(body []byte) (*Page, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &domain.ParseError{Kind: domain.ErrInvalidJSON, Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &domain.ParseError{Kind: domain.ErrUnexpectedShape, Err: fmt.Errorf("top-level value is not an object")}
	}

	var (
		members int
		last    json.RawMessage
		meta    json.RawMessage
	)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &domain.ParseError{Kind: domain.ErrInvalidJSON, Err: err}
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, &domain.ParseError{Kind: domain.ErrInvalidJSON, Err: fmt.Errorf("object key is %T", keyTok)}
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &domain.ParseError{Kind: domain.ErrInvalidJSON, Err: fmt.Errorf("member %q: %w", key, err)}
		}
		members++
		if key == metaMember {
			meta = raw
		}
		last = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, &domain.ParseError{Kind: domain.ErrInvalidJSON, Err: err}
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = fmt.Errorf("trailing data after envelope")
		}
		return nil, &domain.ParseError{Kind: domain.ErrInvalidJSON, Err: err}
	}

	if members < 2 {
		return nil, &domain.ParseError{
			Kind: domain.ErrMissingResultArray,
			Err:  fmt.Errorf("envelope has %d member(s), want metadata and results", members),
		}
	}

	trimmed := bytes.TrimSpace(last)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &domain.ParseError{Kind: domain.ErrUnexpectedShape, Err: fmt.Errorf("last member is not an array")}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, &domain.ParseError{Kind: domain.ErrInvalidJSON, Err: err}
	}

	page := &Page{items: items}
	page.total, page.hasTotal = envelopeTotal(meta)
	return page, nil
}

func envelopeTotal(meta json.RawMessage) (int, bool) {
	if len(meta) == 0 {
		return 0, false
	}
	var attrs struct {
		Count json.Number `json:"count"`
	}
	if err := json.Unmarshal(meta, &attrs); err != nil || attrs.Count == "" {
		return 0, false
	}
	n, err := strconv.Atoi(attrs.Count.String())
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func decodeRecord(raw json.RawMessage) (domain.RawEventRecord, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	rec := make(domain.RawEventRecord, len(obj))
	flatten("", obj, rec)
	return rec, true
}

// flatten copies every scalar member into rec. Nested objects become dotted
// keys ("point.lat"); arrays and nulls are left out. Keys are visited in
// sorted order so collisions resolve the same way every time.
func flatten(prefix string, obj map[string]any, rec domain.RawEventRecord) {
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := obj[k].(type) {
		case string:
			rec[key] = v
		case json.Number:
			rec[key] = v.String()
		case bool:
			rec[key] = strconv.FormatBool(v)
		case map[string]any:
			flatten(key, v, rec)
		}
	}
}
