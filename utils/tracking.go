// Package utils provides utility functions for the application.
package utils

import (
	"strings"
)

// TrackingInfo is what we can derive about a visitor from the request alone.
type TrackingInfo struct {
	Device      string
	OS          string
	Browser     string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// ExtractTracking classifies the user agent into coarse device/OS/browser
// buckets and copies utm_* query parameters through.
func ExtractTracking(userAgent string, query map[string]string) TrackingInfo {
	ua := strings.ToLower(userAgent)

	info := TrackingInfo{
		Device:      "desktop",
		OS:          "other",
		Browser:     "other",
		UTMSource:   query["utm_source"],
		UTMMedium:   query["utm_medium"],
		UTMCampaign: query["utm_campaign"],
	}

	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		info.Device = "tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		info.Device = "mobile"
	}

	switch {
	case strings.Contains(ua, "android"):
		info.OS = "android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		info.OS = "ios"
	case strings.Contains(ua, "windows"):
		info.OS = "windows"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh"):
		info.OS = "macos"
	case strings.Contains(ua, "linux"):
		info.OS = "linux"
	}

	// Order matters: Chrome and Edge UAs both contain "safari",
	// Edge additionally contains "chrome".
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge"):
		info.Browser = "edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		info.Browser = "opera"
	case strings.Contains(ua, "chrome"):
		info.Browser = "chrome"
	case strings.Contains(ua, "firefox"):
		info.Browser = "firefox"
	case strings.Contains(ua, "safari"):
		info.Browser = "safari"
	}

	return info
}
