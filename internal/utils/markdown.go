package utils

import (
	"regexp"
	"strings"
)

var (
	// reOpenFence matches an opening code fence with an optional language tag.
	reOpenFence = regexp.MustCompile("^\\s*```[A-Za-z0-9_+.#-]*[ \\t]*\\r?\\n?")
	// reCloseFence matches a closing code fence at the end of the text.
	reCloseFence = regexp.MustCompile("\\r?\\n?```\\s*$")
	// reHTMLTag matches any HTML tag, used for scraped snippets.
	reHTMLTag = regexp.MustCompile(`(?s)<[^>]+>`)
	// reImageMD matches markdown images: ![alt](url)
	reImageMD = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	// reComment matches HTML comments: <!-- ... -->
	reComment = regexp.MustCompile(`(?s)<!--.*?-->`)
	// reExcessiveNewlines matches 3 or more newlines to compress them
	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)
)

// StripFences removes one surrounding ``` fence pair from a model reply.
// Text without a leading fence is returned trimmed but otherwise untouched.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = reOpenFence.ReplaceAllString(trimmed, "")
	trimmed = reCloseFence.ReplaceAllString(trimmed, "")
	return strings.TrimSpace(trimmed)
}

// CleanFileContent strips fence markers that models repeat around individual
// file bodies. Inner content, including indentation, is preserved.
func CleanFileContent(content string) string {
	lead := strings.TrimLeft(content, " \t\r\n")
	if !strings.HasPrefix(lead, "```") {
		return content
	}
	out := reOpenFence.ReplaceAllString(lead, "")
	out = reCloseFence.ReplaceAllString(out, "")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

// SnippetClean flattens scraped HTML fragments and markdown into plain text
// suitable for prompt context.
func SnippetClean(text string) string {
	text = reImageMD.ReplaceAllString(text, "")
	text = reComment.ReplaceAllString(text, "")
	text = reHTMLTag.ReplaceAllString(text, "")
	text = reExcessiveNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
