// Package device derives session display metadata from the User-Agent
// header. Metadata is informational only; nothing security-relevant hangs
// off it.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Name extracts a human-readable device name from a User-Agent string, in
// the form "Browser on OS" (e.g. "Chrome on macOS", "Safari on iOS").
func Name(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	browser = strings.TrimSpace(browser)
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os = strings.TrimSpace(os); os == "" {
		if p := ua.Platform(); p != "" {
			os = p
		} else {
			os = "Unknown OS"
		}
	}

	return browser + " on " + os
}

// IsMobile reports whether the User-Agent identifies a mobile client.
func IsMobile(userAgentString string) bool {
	if userAgentString == "" {
		return false
	}
	return useragent.New(userAgentString).Mobile()
}
