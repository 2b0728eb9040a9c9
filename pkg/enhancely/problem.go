package enhancely

import "encoding/json"

// ProblemDetails is an RFC 7807 error body. Standard members are exposed through
// accessors; everything else is an extension member.
type ProblemDetails map[string]any

var problemStandardMembers = map[string]struct{}{
	"type":     {},
	"title":    {},
	"status":   {},
	"detail":   {},
	"instance": {},
}

// parseProblemDetails decodes body as a problem document. Only JSON objects qualify.
func parseProblemDetails(body []byte) (ProblemDetails, bool) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil || data == nil {
		return nil, false
	}
	return ProblemDetails(data), true
}

// Type returns the problem type URI, "about:blank" when the member is absent.
func (p ProblemDetails) Type() string {
	if v, ok := p.stringMember("type"); ok {
		return v
	}
	return "about:blank"
}

func (p ProblemDetails) Title() string {
	v, _ := p.stringMember("title")
	return v
}

func (p ProblemDetails) Detail() string {
	v, _ := p.stringMember("detail")
	return v
}

func (p ProblemDetails) Instance() string {
	v, _ := p.stringMember("instance")
	return v
}

// Status returns the status member, 0 when missing or not a number.
func (p ProblemDetails) Status() int {
	switch v := p["status"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

// Extensions returns the members not defined by RFC 7807.
func (p ProblemDetails) Extensions() map[string]any {
	out := make(map[string]any)
	for k, v := range p {
		if _, std := problemStandardMembers[k]; !std {
			out[k] = v
		}
	}
	return out
}

// message picks title, then detail, then fallback.
func (p ProblemDetails) message(fallback string) string {
	if v := p.Title(); v != "" {
		return v
	}
	if v := p.Detail(); v != "" {
		return v
	}
	return fallback
}

func (p ProblemDetails) stringMember(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p[key].(string)
	return v, ok
}
