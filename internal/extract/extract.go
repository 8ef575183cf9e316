// Package extract provides helpers for pulling structured values out of
// the denormalized text blobs Jira stores in SalesForce-mirrored custom
// fields.
package extract

import (
	"regexp"
	"strings"
)

// numericToken matches a digit run enclosed in tag boundaries, e.g. the
// case number inside '<a href="...">01625829</a>'.
var numericToken = regexp.MustCompile(`>(\d+)<`)

// NumericToken returns the first digit run that appears between a '>'
// and a '<' in s, or "" when there is none.
func NumericToken(s string) string {
	m := numericToken.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// dashSep is the separator used by the linked-service-request summary
// format ("01625829 - Normal - Normal - Microsoft Corporation - ...").
const dashSep = " - "

// NthDashField splits s on " - " and returns the n-th segment (1-based)
// trimmed of surrounding whitespace, or "" when s has fewer than n
// segments.
func NthDashField(s string, n int) string {
	if n < 1 {
		return ""
	}
	parts := strings.Split(s, dashSep)
	if len(parts) < n {
		return ""
	}
	return strings.TrimSpace(parts[n-1])
}
