// Package inject places Enhancely JSON-LD into HTML documents and reads it back.
package inject

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"reflect"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/enhancely/enhancely-go/pkg/enhancely"
)

const (
	// MarkerAttr tags script elements written by Inject; its value is the ETag.
	MarkerAttr = "data-enhancely"

	jsonLDSelector = `script[type="application/ld+json"]`
	scriptOpen     = `<script type="application/ld+json">`
	scriptClose    = `</script>`
)

// Inject appends the response's JSON-LD script to <head>, replacing scripts from an
// earlier Inject. Documents are returned unchanged for responses that are not ready.
func Inject(doc []byte, resp enhancely.Response) ([]byte, error) {
	if !resp.Ready() {
		return doc, nil
	}
	tag := resp.ScriptTag()
	if tag == "" {
		return doc, nil
	}

	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	parsed.Find(jsonLDSelector + "[" + MarkerAttr + "]").Remove()

	payload := strings.TrimSuffix(strings.TrimPrefix(tag, scriptOpen), scriptClose)
	marked := fmt.Sprintf(`<script type="application/ld+json" %s="%s">%s%s`,
		MarkerAttr, html.EscapeString(resp.ETag()), payload, scriptClose)

	parsed.Find("head").First().AppendHtml(marked)

	out, err := parsed.Html()
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return []byte(out), nil
}

// Extract decodes every application/ld+json block in the document. Blocks that are
// not valid JSON are skipped and reported in the returned error.
func Extract(doc []byte) ([]any, error) {
	blocks, decodeErrs, err := extract(doc)
	if err != nil {
		return nil, err
	}
	return blocks, errors.Join(decodeErrs...)
}

// Contains reports whether the document embeds a JSON-LD block equal to jsonld.
// Comparison is on decoded values, so whitespace and key order do not matter.
func Contains(doc []byte, jsonld any) (bool, error) {
	if jsonld == nil {
		return false, nil
	}
	want, err := canonical(jsonld)
	if err != nil {
		return false, err
	}

	blocks, _, err := extract(doc)
	if err != nil {
		return false, err
	}
	for _, b := range blocks {
		if reflect.DeepEqual(b, want) {
			return true, nil
		}
	}
	return false, nil
}

func extract(doc []byte) ([]any, []error, error) {
	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		blocks []any
		errs   []error
	)
	parsed.Find(jsonLDSelector).Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var v any
		if err := decodeJSON([]byte(raw), &v); err != nil {
			errs = append(errs, fmt.Errorf("json-ld block %d: %w", i, err))
			return
		}
		blocks = append(blocks, v)
	})
	return blocks, errs, nil
}

func canonical(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json-ld: %w", err)
	}
	var out any
	if err := decodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("decode json-ld: %w", err)
	}
	return out, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after json-ld value")
	}
	return nil
}
