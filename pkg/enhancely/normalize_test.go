package enhancely

import "testing"

func TestNormalizeURL(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"simple url unchanged":           {"https://example.com/page", "https://example.com/page"},
		"removes trailing slash":         {"https://example.com/page/", "https://example.com/page"},
		"keeps root slash":               {"https://example.com/", "https://example.com/"},
		"adds root path":                 {"https://example.com", "https://example.com/"},
		"removes query string":           {"https://example.com/page?utm_source=google&utm_medium=cpc", "https://example.com/page"},
		"removes fragment":               {"https://example.com/page#section", "https://example.com/page"},
		"removes query and fragment":     {"https://example.com/page?foo=bar#section", "https://example.com/page"},
		"removes trailing slash + query": {"https://example.com/page/?foo=bar", "https://example.com/page"},
		"preserves port":                 {"https://example.com:8080/page", "https://example.com:8080/page"},
		"preserves http scheme":          {"http://example.com/page", "http://example.com/page"},
		"handles deep paths":             {"https://example.com/a/b/c/page/", "https://example.com/a/b/c/page"},
		"handles root with query":        {"https://example.com/?lang=de", "https://example.com/"},
		"drops userinfo":                 {"https://user:pw@example.com/page", "https://example.com/page"},
		"keeps percent encoding":         {"https://example.com/caf%C3%A9/", "https://example.com/caf%C3%A9"},
		"keeps scheme and host case":     {"HTTPS://Example.COM/Page/", "HTTPS://Example.COM/Page"},
		"collapses repeated slashes":     {"https://example.com/page//", "https://example.com/page"},
		"fragment before question mark":  {"https://example.com/page#a?b", "https://example.com/page"},
		"bare percent in path":           {"https://shop.example/100%-cotton?utm_source=x", "https://shop.example/100%-cotton"},
		"bare percent with fragment":     {"https://shop.example/50%/sale/#top", "https://shop.example/50%/sale"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := NormalizeURL(tc.in); got != tc.want {
				t.Fatalf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeURLReturnsInvalidInputUnchanged(t *testing.T) {
	for _, in := range []string{"://not-a-valid-url", "example.com/page", "", "/relative/path/", "mailto:someone@example.com"} {
		if got := NormalizeURL(in); got != in {
			t.Fatalf("NormalizeURL(%q) = %q, want input unchanged", in, got)
		}
	}
}

func TestNormalizeURLIgnoresQueryForUnescapedPaths(t *testing.T) {
	a := NormalizeURL("https://shop.example/100%-cotton?utm_source=a")
	b := NormalizeURL("https://shop.example/100%-cotton?utm_source=b")
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}
}

func TestNormalizeURLIsIdempotent(t *testing.T) {
	inputs := []string{
		"https://example.com/page/?a=1#x",
		"https://example.com//",
		"https://example.com",
		"http://user@example.com:8080/a/b/",
		"HTTP://EXAMPLE.com/A/",
		"://not-a-valid-url",
		"https://example.com/ä/ö/",
		"https://[::1]:8443/path/",
	}
	for _, in := range inputs {
		once := NormalizeURL(in)
		if twice := NormalizeURL(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
