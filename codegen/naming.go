package codegen

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var initialisms = map[string]string{
	"Api":  "API",
	"Http": "HTTP",
	"Id":   "ID",
	"Json": "JSON",
	"Url":  "URL",
	"Uri":  "URI",
	"Uuid": "UUID",
}

// pascal converts a GraphQL name to an exported Go identifier: "setRate"
// becomes "SetRate", "exchange_rate" becomes "ExchangeRate" and "id" becomes
// "ID".
func pascal(name string) string {
	// a Caser is stateful, so each call gets its own
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, word := range words(name) {
		w := title.String(word)
		if up, ok := initialisms[w]; ok {
			w = up
		}
		b.WriteString(w)
	}
	out := b.String()
	if out == "" || !unicode.IsLetter(rune(out[0])) {
		out = "X" + out
	}
	return out
}

// enumValue converts an enum value such as "NOT_FOUND" to "NotFound".
func enumValue(v string) string {
	if strings.ToUpper(v) == v {
		v = strings.ToLower(v)
	}
	return pascal(v)
}

// words splits on underscores and on lower-to-upper case boundaries.
func words(name string) []string {
	var out []string
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		start := 0
		runes := []rune(part)
		for i := 1; i < len(runes); i++ {
			if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
				out = append(out, string(runes[start:i]))
				start = i
			}
		}
		out = append(out, string(runes[start:]))
	}
	return out
}
