package domain

// DefaultBaseURL is the Otter API root used when a profile omits one.
const DefaultBaseURL = "https://api.tryotter.com"

// Profile stores one Otter account.
type Profile struct {
	Name          string   `json:"name" yaml:"name"`
	IsDefault     bool     `json:"is_default" yaml:"is_default"`
	Username      string   `json:"username" yaml:"username"`
	Password      string   `json:"password" yaml:"-"`
	BaseURL       string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	RestaurantIDs []string `json:"restaurant_ids,omitempty" yaml:"restaurant_ids,omitempty"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// ResolvedBaseURL returns the profile base URL or the default.
func (p Profile) ResolvedBaseURL() string {
	if p.BaseURL == "" {
		return DefaultBaseURL
	}
	return p.BaseURL
}

// Credentials returns the credential triple for the profile.
func (p Profile) Credentials() Credentials {
	return Credentials{
		Profile:  p.Name,
		Username: p.Username,
		Password: p.Password,
		BaseURL:  p.ResolvedBaseURL(),
	}
}

// Config stores all local profiles.
type Config struct {
	Profiles []Profile `json:"profiles"`
}

// Credentials is the resolved (username, password, base URL) triple.
type Credentials struct {
	Profile  string
	Username string
	Password string
	BaseURL  string
}
