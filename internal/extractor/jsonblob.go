package extractor

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"groupbuy/detailworker/pkg/errors"
)

// maxBlobBytes bounds the literal the scanner is willing to cut
const maxBlobBytes = 4 << 20

// blobNames are the global assignments product pages hydrate from
var blobNames = []string{"window.detailData", "window.__INIT_DATA__", "window.runParams"}

var assignRes = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(blobNames))
	for _, name := range blobNames {
		m[name] = regexp.MustCompile(regexp.QuoteMeta(name) + `\s*=\s*`)
	}
	return m
}()

func assignRe(name string) *regexp.Regexp {
	if re, ok := assignRes[name]; ok {
		return re
	}
	return regexp.MustCompile(regexp.QuoteMeta(name) + `\s*=\s*`)
}

// assignedJSON finds `name = {...}` in an inline script and returns the
// literal parsed with gjson. ok is false when the assignment is absent or is
// not a literal; err is set when a literal was found but is not valid JSON.
func assignedJSON(html, name string) (gjson.Result, bool, error) {
	loc := assignRe(name).FindStringIndex(html)
	if loc == nil {
		return gjson.Result{}, false, nil
	}
	return literalAt(html, loc[1], name)
}

// keyedArray finds `"key": [...]` anywhere in the page source
func keyedArray(html, key string) (gjson.Result, bool, error) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*\[`)
	loc := re.FindStringIndex(html)
	if loc == nil {
		return gjson.Result{}, false, nil
	}
	return literalAt(html, loc[1]-1, key)
}

func literalAt(html string, start int, name string) (gjson.Result, bool, error) {
	rest := strings.TrimLeft(html[start:], " \t\r\n")
	if rest == "" || (rest[0] != '{' && rest[0] != '[') {
		return gjson.Result{}, false, nil
	}

	literal, ok := cutBalanced(rest)
	if !ok {
		return gjson.Result{}, false, errors.NewMalformedData("jsonblob", "unterminated literal for "+name, nil)
	}
	if !gjson.Valid(literal) {
		return gjson.Result{}, false, errors.NewMalformedData("jsonblob", "invalid JSON literal for "+name, nil)
	}
	return gjson.Parse(literal), true, nil
}

// cutBalanced returns the prefix of s that forms one balanced {...} or
// [...] literal, honouring string literals and escapes.
func cutBalanced(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	var quote byte

	for i := 0; i < len(s) && i < maxBlobBytes; i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
			if depth < 0 {
				return "", false
			}
		}
	}
	return "", false
}

// findKey walks r depth first and returns the first value stored under any
// of keys.
func findKey(r gjson.Result, keys ...string) gjson.Result {
	return findKeyDepth(r, 0, keys)
}

func findKeyDepth(r gjson.Result, depth int, keys []string) gjson.Result {
	if depth > 16 || !(r.IsObject() || r.IsArray()) {
		return gjson.Result{}
	}

	var found gjson.Result
	if r.IsObject() {
		for _, k := range keys {
			if v := r.Get(gjson.Escape(k)); v.Exists() {
				return v
			}
		}
	}
	r.ForEach(func(_, value gjson.Result) bool {
		found = findKeyDepth(value, depth+1, keys)
		return !found.Exists()
	})
	return found
}

// embeddedBlobs returns every parseable product blob on the page. Malformed
// literals are logged and skipped.
func (p *page) embeddedBlobs() []gjson.Result {
	var blobs []gjson.Result
	for _, name := range blobNames {
		r, ok, err := assignedJSON(p.html, name)
		if err != nil {
			p.log.Debug().Err(err).Str("url", p.url).Msg("Embedded data is not valid JSON")
			continue
		}
		if ok {
			blobs = append(blobs, r)
		}
	}
	return blobs
}
