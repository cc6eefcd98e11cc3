// Package privacy provides utilities for handling personally identifiable
// information in log output.
package privacy

import (
	"fmt"
	"net"
	"strings"
)

// AnonymizeIP truncates an IP address to remove the host-identifying
// portion. The anonymized value cannot identify a specific caller but still
// supports abuse-pattern analysis in rate-limit and security logs.
//
// Returns "invalid" for unparseable addresses and "unknown" for empty input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	// To4 also catches IPv4-mapped IPv6 addresses.
	if v4 := parsed.To4(); v4 != nil {
		return maskV4(v4)
	}
	return maskV6(parsed)
}

// maskV4 zeroes the host octet, e.g. "192.168.1.47" -> "192.168.1.0".
// Up to 256 hosts share the masked value.
func maskV4(ip net.IP) string {
	return fmt.Sprintf("%d.%d.%d.0", ip[0], ip[1], ip[2])
}

// maskV6 keeps only the /48 routing prefix.
func maskV6(ip net.IP) string {
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		ip[0], ip[1], ip[2], ip[3], ip[4], ip[5])
}

// MaskEmail redacts the local part of an address, keeping its first
// character and the full domain, so repeated failures against one account
// can be correlated in logs without recording the address itself.
//
// Returns "invalid" when the input is not of the form local@domain and
// "unknown" for empty input.
func MaskEmail(email string) string {
	if email == "" {
		return "unknown"
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 {
		return "invalid"
	}
	return email[:1] + "***" + email[at:]
}
