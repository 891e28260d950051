package session

import "strings"

// ParseUserAgent derives coarse device metadata from a raw User-Agent header.
// The classification is heuristic and intended for session introspection
// displays, not for security decisions.
func ParseUserAgent(userAgent, ip string) DeviceInfo {
	info := DeviceInfo{
		UserAgent:  userAgent,
		DeviceType: "desktop",
		Browser:    "unknown",
		OS:         "unknown",
		IP:         ip,
	}
	if userAgent == "" {
		info.DeviceType = "unknown"
		return info
	}

	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		info.DeviceType = "tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		info.DeviceType = "mobile"
	case strings.Contains(ua, "bot") || strings.Contains(ua, "curl") || strings.Contains(ua, "wget"):
		info.DeviceType = "bot"
	}

	// Order matters: Edge and Opera embed "chrome", Chrome embeds "safari".
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge"):
		info.Browser = "edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		info.Browser = "opera"
	case strings.Contains(ua, "firefox"):
		info.Browser = "firefox"
	case strings.Contains(ua, "chrome") || strings.Contains(ua, "crios"):
		info.Browser = "chrome"
	case strings.Contains(ua, "safari"):
		info.Browser = "safari"
	}

	switch {
	case strings.Contains(ua, "windows"):
		info.OS = "windows"
	case strings.Contains(ua, "android"):
		info.OS = "android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		info.OS = "ios"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh"):
		info.OS = "macos"
	case strings.Contains(ua, "linux"):
		info.OS = "linux"
	}

	return info
}
