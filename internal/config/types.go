package config

// Config represents the complete configuration structure for the task runner
type Config struct {
	Mistral    Mistral    `mapstructure:"mistral"`
	Parameters Parameters `mapstructure:"parameters"`
}

// Mistral holds provider connection settings. These act as fallbacks when a
// task definition leaves apiKey or baseUrl to the runner.
type Mistral struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Parameters contains runner behavior settings
type Parameters struct {
	// HTTP timeout for a single call, in seconds
	Timeout int `mapstructure:"timeout"`
}
