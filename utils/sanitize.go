package utils

import "github.com/microcosm-cc/bluemonday"

var richTextPolicy = newRichTextPolicy()

// newRichTextPolicy allows the formatting a rich-text editor produces and nothing executable.
func newRichTextPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "s", "strike", "sub", "sup", "span")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Sanitize cleans rich-text HTML to prevent XSS attacks.
func Sanitize(input string) string {
	return richTextPolicy.Sanitize(input)
}
