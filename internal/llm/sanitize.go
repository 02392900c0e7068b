package llm

import "regexp"

var (
	reSecretKey   = regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`)
	reBearer      = regexp.MustCompile(`Bearer [a-zA-Z0-9\-._~+/]+=*`)
	reGitHubToken = regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{20,}`)
	reDataURL     = regexp.MustCompile(`(?is)\bdata:(image|video|audio)/[a-z0-9+.-]+;base64,[a-z0-9+/=\r\n]+`)
)

// RedactSecrets masks API keys and bearer tokens so text can be logged or
// handed to the mentor.
func RedactSecrets(text string) string {
	text = reSecretKey.ReplaceAllString(text, "sk-[REDACTED]")
	text = reBearer.ReplaceAllString(text, "Bearer [REDACTED]")
	text = reGitHubToken.ReplaceAllString(text, "gh_[REDACTED]")
	return text
}

// RedactMedia replaces inline base64 media payloads with a marker.
func RedactMedia(text string) string {
	return reDataURL.ReplaceAllString(text, "[REDACTED media]")
}
