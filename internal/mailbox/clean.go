package mailbox

import (
	"regexp"
	"strings"
)

// cutPass inspects lines and returns the index to truncate at, or len(lines)
// when it finds nothing.
type cutPass func(lines []string) int

// Cleaner strips quoted history and trailing signatures from plaintext
// replies. It is a heuristic over common client formats, not a parser.
type Cleaner struct {
	passes []cutPass
}

// CleanerOptions personalizes signature detection.
type CleanerOptions struct {
	// Names and Titles are whole lines that open the owner's signature.
	Names  []string
	Titles []string
	// SiteURL cuts at any line containing it.
	SiteURL string
}

var baseSignaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^--\s*$`),
	regexp.MustCompile(`(?i)^Best regards,?\s*$`),
	regexp.MustCompile(`(?i)^Regards,?\s*$`),
	regexp.MustCompile(`(?i)^Thanks,?\s*$`),
	regexp.MustCompile(`(?i)^Sent from my `),
	regexp.MustCompile(`(?i)^Email:\s*`),
	regexp.MustCompile(`(?i)^Phone:\s*`),
	regexp.MustCompile(`(?i)^Website:\s*`),
}

// NewCleaner builds the pipeline: quoted block, original-message marker,
// then signature block.
func NewCleaner(opts CleanerOptions) *Cleaner {
	patterns := append([]*regexp.Regexp(nil), baseSignaturePatterns...)
	for _, s := range append(append([]string(nil), opts.Names...), opts.Titles...) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)^`+regexp.QuoteMeta(s)+`\s*$`))
	}
	sig := signatureBlock(patterns, strings.ToLower(strings.TrimSpace(opts.SiteURL)))
	return &Cleaner{passes: []cutPass{quoteStart, originalMessage, sig}}
}

// Clean applies every pass in order, drops trailing blank lines and trims.
func (c *Cleaner) Clean(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")
	for _, pass := range c.passes {
		lines = lines[:pass(lines)]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// quoteStart finds the first quoted line, "On ... wrote:" attribution, or
// Outlook-style "From: ... Sent:" header.
func quoteStart(lines []string) int {
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ">") ||
			(strings.Contains(line, "On ") && strings.Contains(line, "wrote:")) ||
			(strings.Contains(line, "From:") && strings.Contains(line, "Sent:")) {
			return i
		}
	}
	return len(lines)
}

// originalMessage finds a "your original message" marker, a --- separator,
// or a line carrying both From: and Subject:.
func originalMessage(lines []string) int {
	for i, line := range lines {
		t := strings.TrimSpace(line)
		lt := strings.ToLower(t)
		if strings.Contains(lt, "your original message") ||
			strings.HasPrefix(t, "---") ||
			(strings.Contains(lt, "from:") && strings.Contains(lt, "subject:")) {
			return i
		}
	}
	return len(lines)
}

// signatureBlock scans from the end and cuts at the first marker it meets.
func signatureBlock(patterns []*regexp.Regexp, siteURL string) cutPass {
	return func(lines []string) int {
		for i := len(lines) - 1; i >= 0; i-- {
			t := strings.TrimSpace(lines[i])
			if siteURL != "" && strings.Contains(strings.ToLower(t), siteURL) {
				return i
			}
			for _, re := range patterns {
				if re.MatchString(t) {
					return i
				}
			}
		}
		return len(lines)
	}
}
