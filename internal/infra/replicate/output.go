package replicate

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnrecognizedOutput = errors.New("unrecognized prediction output")

var urlPrefixes = []string{"http://", "https://", "data:"}

// OutputURL extracts the generated image URL from a prediction output.
// Accepted shapes:
//
//	"https://..."                  a single URL
//	["https://...", ...]           the first URL of a list
//	{"output": <one of the above>} a wrapped output
//	{"url": "https://..."}         a file object
func OutputURL(output any) (string, error) {
	switch v := output.(type) {
	case string:
		if u, ok := urlLike(v); ok {
			return u, nil
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if u, ok := urlLike(s); ok {
					return u, nil
				}
			}
		}
	case []string:
		for _, s := range v {
			if u, ok := urlLike(s); ok {
				return u, nil
			}
		}
	case map[string]any:
		if inner, ok := v["output"]; ok {
			switch inner.(type) {
			case string, []any, []string:
				return OutputURL(inner)
			}
		}
		if s, ok := v["url"].(string); ok {
			if u, ok := urlLike(s); ok {
				return u, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %T", ErrUnrecognizedOutput, output)
}

func urlLike(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, p := range urlPrefixes {
		if strings.HasPrefix(s, p) {
			return s, true
		}
	}
	return "", false
}
