// Package device derives human-readable session device metadata from the
// login User-Agent. Display only; nothing here participates in security
// decisions.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// DisplayName renders a User-Agent as "Browser on OS", e.g. "Chrome on macOS".
// Unknown agents come back as "Unknown device".
func DisplayName(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown device"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name

	browser = strings.TrimSpace(browser)
	os = strings.TrimSpace(os)

	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown device"
	}
}
