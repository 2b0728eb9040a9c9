package enhancely

import (
	"bytes"
	"encoding/json"
)

const (
	scriptOpen  = `<script type="application/ld+json">`
	scriptClose = `</script>`
)

// ScriptTag encodes jsonld inside an application/ld+json script element. Slashes and
// non-ASCII text, U+2028 and U+2029 included, are written as-is; <, > and & are escaped
// so the payload cannot end the element early. It returns "" for nil or unencodable values.
func ScriptTag(jsonld any) string {
	if jsonld == nil {
		return ""
	}
	encoded, err := json.Marshal(jsonld)
	if err != nil {
		return ""
	}
	encoded = unescapeLineSeparators(encoded)

	var buf bytes.Buffer
	buf.Grow(len(scriptOpen) + len(encoded) + len(scriptClose))
	buf.WriteString(scriptOpen)
	buf.Write(encoded)
	buf.WriteString(scriptClose)
	return buf.String()
}

// unescapeLineSeparators undoes the \u2028 and \u2029 escapes json.Marshal always applies.
// Every backslash in encoder output starts an escape, so pairs are copied as a unit.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if i+5 < len(b) && string(b[i+1:i+5]) == "u202" && (b[i+5] == '8' || b[i+5] == '9') {
			if b[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}
