// Package render writes search results for humans or machines.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"duckse/search"
)

// NoResults is printed in pretty mode when the list is empty.
const NoResults = "No results found."

// JSON writes results as an indented array. HTML characters and non-ASCII
// text are written as is.
func JSON(w io.Writer, results []search.Result) error {
	if results == nil {
		results = []search.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

// Pretty writes a numbered block per result.
func Pretty(w io.Writer, c search.Category, results []search.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, NoResults)
		return err
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteByte('\n')
		}
		title, ok := r.String("title")
		if !ok {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, oneLine(title))
		line := func(label string, keys ...string) {
			if v, ok := r.First(keys...); ok {
				if label != "" {
					label += ": "
				}
				fmt.Fprintf(&b, "   %s%s\n", label, oneLine(v))
			}
		}
		line("Source", "source", "publisher")
		line("Date", "date", "published")
		line("URL", "url", "href", "content")
		line("Resolved URL", "resolved_url")
		line("", "body", "description")
		if c == search.CategoryImages {
			line("Image", "image")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
