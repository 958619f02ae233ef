package useragent

import (
	"testing"
)

const (
	chromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"
	chromeAndroid = "Mozilla/5.0 (Linux; Android 14; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.144 Mobile Safari/537.36"
	safariIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1"
	firefoxLinux  = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/119.0"
)

func TestParse_EmptyString(t *testing.T) {
	for _, ua := range []string{"", "   "} {
		result := Parse(ua)

		if result.Browser != "Unknown" {
			t.Errorf("Browser = %q, want %q", result.Browser, "Unknown")
		}
		if result.OS != "Unknown" {
			t.Errorf("OS = %q, want %q", result.OS, "Unknown")
		}
		if result.DeviceType != "unknown" {
			t.Errorf("DeviceType = %q, want %q", result.DeviceType, "unknown")
		}
		if result.IsBot {
			t.Errorf("IsBot = %v, want %v", result.IsBot, false)
		}
	}
}

func TestParse_RealWorldUserAgents(t *testing.T) {
	tests := []struct {
		name           string
		ua             string
		wantBrowser    string
		wantOS         string
		wantDeviceType string
	}{
		{"Chrome on Windows 10", chromeWindows, "Chrome", "Windows", "desktop"},
		{"Safari on macOS", safariMac, "Safari", "macOS", "desktop"},
		{"Chrome on Android", chromeAndroid, "Chrome", "Android", "mobile"},
		{"Safari on iPhone", safariIPhone, "Safari", "iOS", "mobile"},
		{"Firefox on Linux", firefoxLinux, "Firefox", "Linux", "desktop"},
		{
			"Edge on Windows",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0",
			"Edge", "Windows", "desktop",
		},
		{
			"Chrome OS",
			"Mozilla/5.0 (X11; CrOS x86_64 14541.0.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
			"Chrome", "Chrome OS", "desktop",
		},
		// Library detects curl as browser name
		{"curl", "curl/7.88.1", "curl", "Unknown", "desktop"},
		{"wget", "Wget/1.21.3", "Wget", "Unknown", "desktop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.ua)

			if result.Browser != tt.wantBrowser {
				t.Errorf("Browser = %q, want %q", result.Browser, tt.wantBrowser)
			}
			if result.OS != tt.wantOS {
				t.Errorf("OS = %q, want %q", result.OS, tt.wantOS)
			}
			if result.DeviceType != tt.wantDeviceType {
				t.Errorf("DeviceType = %q, want %q", result.DeviceType, tt.wantDeviceType)
			}
			if result.IsBot {
				t.Errorf("IsBot = true for %s", tt.name)
			}
			if result.BotName != "" {
				t.Errorf("BotName = %q, want empty string", result.BotName)
			}
		})
	}
}

func TestParse_Bots(t *testing.T) {
	tests := []struct {
		ua      string
		botName string
	}{
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", "Googlebot"},
		{"Mozilla/5.0 (compatible; bingbot/2.0; +http://www.bing.com/bingbot.htm)", "Bingbot"},
		{"Mozilla/5.0 (compatible; YandexBot/3.0; +http://yandex.com/bots)", "YandexBot"},
		{"Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)", "Slackbot"},
		{"Mozilla/5.0 AppleWebKit/537.36 (KHTML, like Gecko; compatible; GPTBot/1.0; +https://openai.com/gptbot)", "GPTBot"},
		{"Mozilla/5.0 (compatible; AhrefsBot/7.0; +http://ahrefs.com/robot/)", "AhrefsBot"},
		{"Mozilla/5.0+(compatible; UptimeRobot/2.0; http://www.uptimerobot.com/)", "UptimeRobot"},
		{"Mozilla/5.0 (compatible; MyCrawler/1.0)", "Unknown Crawler"},
		{"MySpider/1.0", "Unknown Spider"},
		{"SomeBot/1.0", "Unknown Bot"},
	}

	for _, tt := range tests {
		t.Run(tt.botName, func(t *testing.T) {
			result := Parse(tt.ua)
			if !result.IsBot {
				t.Fatalf("IsBot = false for %q", tt.ua)
			}
			if result.DeviceType != "bot" || result.OS != "Bot" {
				t.Errorf("DeviceType/OS = %q/%q, want bot/Bot", result.DeviceType, result.OS)
			}
			if result.BotName != tt.botName {
				t.Errorf("BotName = %q, want %q", result.BotName, tt.botName)
			}
			if !IsBot(tt.ua) {
				t.Error("IsBot() disagrees with Parse")
			}
		})
	}
}

func TestIsBot_Browsers(t *testing.T) {
	for _, ua := range []string{chromeWindows, safariMac, chromeAndroid, safariIPhone, firefoxLinux, ""} {
		if IsBot(ua) {
			t.Errorf("IsBot(%q) = true", ua)
		}
	}
}

func TestIdentifyBot_SpecificBeforeGeneric(t *testing.T) {
	tests := []struct {
		lowerUA string
		want    string
	}{
		{"googlebot/2.1", "Googlebot"},
		{"claudebot/1.0", "ClaudeBot"},
		{"my web crawler", "Unknown Crawler"},
		{"robot", "Unknown Bot"},
		{"completely unknown agent", "Unknown Bot"},
	}

	for _, tt := range tests {
		t.Run(tt.lowerUA, func(t *testing.T) {
			if got := identifyBot(tt.lowerUA); got != tt.want {
				t.Errorf("identifyBot(%q) = %q, want %q", tt.lowerUA, got, tt.want)
			}
		})
	}
}

func TestNormalizeBrowserName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"chrome", "Chrome"},
		{"google chrome", "Chrome"},
		{"mozilla firefox", "Firefox"},
		{"mobile safari", "Safari"},
		{"microsoft edge", "Edge"},
		{"opera mini", "Opera"},
		{"msie", "Internet Explorer"},
		{"samsungbrowser", "Samsung Browser"},
		{"", "Unknown"},
		{"UnknownBrowser", "UnknownBrowser"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeBrowserName(tt.name); got != tt.want {
				t.Errorf("normalizeBrowserName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseOS(t *testing.T) {
	tests := []struct {
		osInfo  string
		lowerUA string
		wantOS  string
	}{
		{"iPhone OS 17.1", "iphone; cpu iphone os 17_1 like mac os x", "iOS"},
		{"", "ipad; cpu os 17_1 like mac os x", "iOS"},
		{"Android 14", "linux; android 14; pixel 7", "Android"},
		{"Windows NT 10.0", "windows nt 10.0; win64; x64", "Windows"},
		{"Mac OS X 14.1", "macintosh; intel mac os x 14_1", "macOS"},
		{"Linux x86_64", "x11; linux x86_64", "Linux"},
		{"CrOS x86_64", "x11; cros x86_64 14541.0.0", "Chrome OS"},
		{"", "", "Unknown"},
		{"CustomOS", "custom user agent", "CustomOS"},
	}

	for _, tt := range tests {
		t.Run(tt.osInfo+"_"+tt.lowerUA, func(t *testing.T) {
			if got := parseOS(tt.osInfo, tt.lowerUA); got != tt.wantOS {
				t.Errorf("parseOS(%q, %q) = %q, want %q", tt.osInfo, tt.lowerUA, got, tt.wantOS)
			}
		})
	}
}

func TestIsTablet(t *testing.T) {
	tests := []struct {
		lowerUA string
		want    bool
	}{
		{"ipad; cpu os 17_1 like mac os x", true},
		{"kindle fire hdx", true},
		{"silk browser", true},
		{"iphone; cpu iphone os 17_1", false},
		{"windows nt 10.0", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.lowerUA, func(t *testing.T) {
			if got := isTablet(tt.lowerUA); got != tt.want {
				t.Errorf("isTablet(%q) = %v, want %v", tt.lowerUA, got, tt.want)
			}
		})
	}
}
