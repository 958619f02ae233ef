// Package useragent classifies the clients that request reports: browser and
// OS for the generation history, and crawler detection for bot blocking.
package useragent

import (
	"strings"

	"github.com/mssola/useragent"
)

// Client describes who sent a request.
type Client struct {
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"device_type"` // desktop, mobile, tablet, bot, unknown
	IsBot      bool   `json:"is_bot"`
	BotName    string `json:"bot_name,omitempty"`
}

// botSignature pairs a lower-case user-agent fragment with a display name.
type botSignature struct {
	fragment string
	name     string
}

// knownBots is checked in order, so specific signatures precede generic ones.
var knownBots = []botSignature{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"yandexbot", "YandexBot"},
	{"duckduckbot", "DuckDuckBot"},
	{"baiduspider", "Baiduspider"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedInBot"},
	{"slackbot", "Slackbot"},
	{"discordbot", "Discordbot"},
	{"slurp", "Yahoo Slurp"},
	{"ahrefsbot", "AhrefsBot"},
	{"semrushbot", "SemrushBot"},
	{"mj12bot", "MJ12Bot"},
	{"petalbot", "PetalBot"},
	{"applebot", "Applebot"},
	{"gptbot", "GPTBot"},
	{"claudebot", "ClaudeBot"},
	{"bytespider", "ByteSpider"},
	{"ia_archiver", "Alexa"},
	{"archive.org_bot", "Internet Archive"},
	{"uptimerobot", "UptimeRobot"},
	{"pingdom", "Pingdom"},
	{"statuscake", "StatusCake"},
	{"crawler", "Unknown Crawler"},
	{"spider", "Unknown Spider"},
	{"bot", "Unknown Bot"},
}

// Parse classifies a user-agent string.
func Parse(uaString string) Client {
	if strings.TrimSpace(uaString) == "" {
		return Client{Browser: "Unknown", OS: "Unknown", DeviceType: "unknown"}
	}

	ua := useragent.New(uaString)
	lowerUA := strings.ToLower(uaString)

	if ua.Bot() || containsAny(lowerUA, "bot", "crawler", "spider", "crawl", "slurp", "archiver") {
		name := identifyBot(lowerUA)
		return Client{
			Browser:    name,
			OS:         "Bot",
			DeviceType: "bot",
			IsBot:      true,
			BotName:    name,
		}
	}

	browserName, _ := ua.Browser()
	c := Client{
		Browser: normalizeBrowserName(browserName),
		OS:      parseOS(ua.OS(), lowerUA),
	}

	switch {
	case ua.Mobile():
		c.DeviceType = "mobile"
	case isTablet(lowerUA):
		c.DeviceType = "tablet"
	default:
		c.DeviceType = "desktop"
	}
	return c
}

// IsBot reports whether uaString identifies a crawler or monitor.
func IsBot(uaString string) bool {
	return Parse(uaString).IsBot
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func identifyBot(lowerUA string) string {
	for _, sig := range knownBots {
		if strings.Contains(lowerUA, sig.fragment) {
			return sig.name
		}
	}
	return "Unknown Bot"
}

func normalizeBrowserName(name string) string {
	switch strings.ToLower(name) {
	case "chrome", "google chrome":
		return "Chrome"
	case "firefox", "mozilla firefox":
		return "Firefox"
	case "safari", "mobile safari":
		return "Safari"
	case "edge", "microsoft edge":
		return "Edge"
	case "opera", "opera mini":
		return "Opera"
	case "ie", "internet explorer", "msie":
		return "Internet Explorer"
	case "samsung browser", "samsungbrowser":
		return "Samsung Browser"
	case "":
		return "Unknown"
	default:
		return name
	}
}

func parseOS(osInfo, lowerUA string) string {
	osLower := strings.ToLower(osInfo)

	switch {
	case strings.Contains(lowerUA, "iphone") || strings.Contains(lowerUA, "ipad") || strings.Contains(osLower, "ios"):
		return "iOS"
	case strings.Contains(osLower, "android"):
		return "Android"
	case strings.Contains(osLower, "windows"):
		return "Windows"
	case strings.Contains(osLower, "mac os") || strings.Contains(osLower, "macos") || strings.Contains(lowerUA, "macintosh"):
		return "macOS"
	case strings.Contains(osLower, "cros") || strings.Contains(lowerUA, "chromeos"):
		return "Chrome OS"
	case strings.Contains(osLower, "linux"):
		return "Linux"
	case osInfo == "":
		return "Unknown"
	}
	return osInfo
}

func isTablet(lowerUA string) bool {
	return containsAny(lowerUA, "ipad", "tablet", "kindle", "playbook", "silk")
}
