package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://hacker-news.firebaseio.com/v0",
		Timeout:     30000, // 30 seconds
		MaxStories:  20,
		Prefetch:    0,
		RateLimit:   0, // unlimited
		ValidateSSL: BoolPtr(true),
		Reporters:   []string{"console"},
		FixturesDir: ".",
		Parallel:    BoolPtr(false),
		Concurrency: 5,
		Bail:        BoolPtr(false),
		Verbose:     BoolPtr(false),
		NoColor:     BoolPtr(false),
	}
}
