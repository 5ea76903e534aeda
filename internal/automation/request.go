package automation

// BrowserProfile selects how the remote browser is launched.
type BrowserProfile string

const (
	ProfileLite    BrowserProfile = "lite"
	ProfileStealth BrowserProfile = "stealth"
)

// ProxyConfig routes the remote browser through a proxy, optionally pinned to a country.
type ProxyConfig struct {
	Enabled     bool   `json:"enabled"`
	CountryCode string `json:"country_code,omitempty"`
}

// FeatureFlags toggles optional agent behaviour.
type FeatureFlags struct {
	EnableAgentMemory bool `json:"enable_agent_memory"`
}

// Request starts one automation run against URL with a natural-language goal.
type Request struct {
	URL            string         `json:"url"`
	Goal           string         `json:"goal"`
	BrowserProfile BrowserProfile `json:"browser_profile,omitempty"`
	ProxyConfig    *ProxyConfig   `json:"proxy_config,omitempty"`
	FeatureFlags   *FeatureFlags  `json:"feature_flags,omitempty"`
	Integration    string         `json:"api_integration,omitempty"`
}

// ParseProfile returns ProfileStealth for "stealth" and ProfileLite otherwise.
func ParseProfile(name string) BrowserProfile {
	if BrowserProfile(name) == ProfileStealth {
		return ProfileStealth
	}
	return ProfileLite
}
