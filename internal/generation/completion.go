package generation

import (
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
)

// maxScalarLen bounds a completion accepted as a single value.
const maxScalarLen = 200

// Completion is a parsed model answer: one of ArrayResult, ScalarText or ParseFailure.
type Completion interface {
	completion()
}

// ArrayResult is a list of values.
type ArrayResult struct {
	Items []string
}

// ScalarText is a single short value.
type ScalarText struct {
	Text string
}

// ParseFailure is an answer none of the parsers accepted.
type ParseFailure struct {
	Raw string
}

func (ArrayResult) completion()  {}
func (ScalarText) completion()   {}
func (ParseFailure) completion() {}

var (
	quotedPattern = regexp.MustCompile(`"([^"\n]+)"`)
	fencePattern  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// ParseCompletion tries, in order: the whole answer as a JSON array of strings, the first
// embedded [...] span as one, every double-quoted string, and the answer as a single
// value. Anything else is a ParseFailure.
func ParseCompletion(raw string) Completion {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	parsers := []func(string) (Completion, bool){
		parseJSONArray,
		parseEmbeddedArray,
		parseQuotedStrings,
		parseScalar,
	}
	for _, p := range parsers {
		if c, ok := p(text); ok {
			return c
		}
	}
	return ParseFailure{Raw: raw}
}

func parseJSONArray(text string) (Completion, bool) {
	if !strings.HasPrefix(text, "[") {
		return nil, false
	}
	var values []interface{}
	if err := sonic.UnmarshalString(text, &values); err != nil {
		return nil, false
	}
	items := stringItems(values)
	if items == nil && len(values) > 0 {
		return nil, false
	}
	return ArrayResult{Items: items}, true
}

func parseEmbeddedArray(text string) (Completion, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	return parseJSONArray(text[start : end+1])
}

func parseQuotedStrings(text string) (Completion, bool) {
	matches := quotedPattern.FindAllStringSubmatch(text, -1)
	var items []string
	for _, m := range matches {
		if s := strings.TrimSpace(m[1]); s != "" {
			items = append(items, s)
		}
	}
	if len(items) == 0 {
		return nil, false
	}
	return ArrayResult{Items: items}, true
}

func parseScalar(text string) (Completion, bool) {
	if text == "" || len(text) > maxScalarLen || strings.ContainsAny(text, "[]{}\n") {
		return nil, false
	}
	value := strings.Trim(text, ` "'.`)
	if value == "" {
		return nil, false
	}
	return ScalarText{Text: value}, true
}

// stringItems keeps the non-blank string elements of values, or nil when there are none.
func stringItems(values []interface{}) []string {
	var items []string
	for _, v := range values {
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
	}
	return items
}
