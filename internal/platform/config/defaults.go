package config

import "time"

// Defaults returns the configuration used when no file or environment
// overrides are present.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			AuthEnabled: false,
		},
		Log: LogConfig{
			Level: "info",
		},
		Image: ImageConfig{
			MaxFileSize:    5 * 1024 * 1024,
			MaxWidth:       8192,
			MaxHeight:      8192,
			MaxPixels:      32 * 1024 * 1024,
			AllowedFormats: []string{"jpeg", "jpg", "png", "gif", "webp", "bmp"},
		},
		Extraction: ExtractionConfig{
			Colors:     6,
			MaxSamples: 4096,
		},
		Compute: ComputeConfig{
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Driver:   "memory",
			TTL:      time.Hour,
			Capacity: 1024,
		},
		ImageStore: StoreConfig{
			Driver: "memory",
			TTL:    24 * time.Hour,
		},
		History: HistoryConfig{
			Driver:          "memory",
			SQLite:          SQLiteConfig{DSN: "stayonboard.db"},
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}
