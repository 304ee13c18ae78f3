// Package redact strips credentials and other sensitive fragments from
// strings before they are logged or returned in error responses. Outbound
// calls to Hugging Face, S3 and Pixabay routinely echo tokens, signed URLs and
// API keys in their error text; everything that reaches a log line or an HTTP
// body passes through here first.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted fragments.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedHFTokenPlaceholder    = "[REDACTED_HF_TOKEN]"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Rules are applied in order; earlier rules see the raw input.
var rules = []rule{
	// user:password in connection strings, keeping the scheme
	{
		regexp.MustCompile(`(?i)\b(postgres(?:ql)?|mysql|mongodb|redis)://[^@\s/]+@`),
		"${1}://" + RedactedCredentialPlaceholder + "@",
	},
	{
		regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		RedactedJWTPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-.~+/=]{8,}`),
		"Bearer " + RedactionPlaceholder,
	},
	{
		regexp.MustCompile(`\bhf_[A-Za-z0-9]{8,}`),
		RedactedHFTokenPlaceholder,
	},
	{
		regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`),
		RedactedKeyPlaceholder,
	},
	// presigned URL query parameters
	{
		regexp.MustCompile(`(?i)\b(X-Amz-(?:Signature|Credential|Security-Token))=[^&\s"']+`),
		"${1}=" + RedactionPlaceholder,
	},
	// key=value style secrets, as in query strings and form bodies
	{
		regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|token|secret|password|key)=[^&\s"'\[]{4,}`),
		"${1}=" + RedactionPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)\b(password|secret|api[_-]?key)(\s*[:]\s*)['"]?[^'"\s,}]{3,}['"]?`),
		"${1}${2}" + RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`),
		"[STACK_TRACE_REDACTED]",
	},
	{
		regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b[\s\w,*()."$=]+\b(FROM|INTO|SET)\b[\s\w,*()."$=]*`),
		"[REDACTED_SQL]",
	},
	{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		"[REDACTED_EMAIL]",
	},
	{
		regexp.MustCompile(`(?:^|[\s"'(=])((?:/[\w.-]+){2,})`),
		"",
	},
}

// pathRule is the last rule; its replacement keeps the leading delimiter.
var pathRule = rules[len(rules)-1].re

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules[:len(rules)-1] {
		result = r.re.ReplaceAllString(result, r.repl)
	}

	return pathRule.ReplaceAllStringFunc(result, func(m string) string {
		sub := pathRule.FindStringSubmatchIndex(m)
		// keep whatever delimiter preceded the path
		return m[:sub[2]] + RedactedPathPlaceholder
	})
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
