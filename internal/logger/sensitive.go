package logger

import "regexp"

// sensitiveDataPatterns match credentials that must never reach a log sink.
// The first group is kept and the rest replaced.
var sensitiveDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-._~+/]+=*)`),
	regexp.MustCompile(`(?i)((api[_-]?key|token|secret|password)[\s:=]+)([^;,\s]{5,})`),
	regexp.MustCompile(`()(sk-or-v1-[A-Za-z0-9]+)`),
}

// RedactSensitiveData replaces bearer tokens and key-like values with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range sensitiveDataPatterns {
		input = pattern.ReplaceAllString(input, "${1}[REDACTED]")
	}
	return input
}
