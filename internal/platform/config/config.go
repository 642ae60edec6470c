package config

import (
	"time"
)

// Config is the full server configuration tree.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Image      ImageConfig      `yaml:"image"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Compute    ComputeConfig    `yaml:"compute"`
	Cache      CacheConfig      `yaml:"cache"`
	ImageStore StoreConfig      `yaml:"image_store"`
	History    HistoryConfig    `yaml:"history"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	AuthEnabled bool   `yaml:"auth_enabled"`
	AuthSecret  string `yaml:"auth_secret"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// ImageConfig bounds the payloads the pipeline accepts.
type ImageConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	MaxPixels      int64    `yaml:"max_pixels"`
	AllowedFormats []string `yaml:"allowed_formats"`
}

// ExtractionConfig tunes dominant-color extraction.
type ExtractionConfig struct {
	Colors     int `yaml:"colors"`
	MaxSamples int `yaml:"max_samples"`
}

type ComputeConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	Driver   string        `yaml:"driver"`
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`
	Redis    RedisConfig   `yaml:"redis,omitempty"`
}

// StoreConfig configures the uploaded-image store.
type StoreConfig struct {
	Driver string        `yaml:"driver"`
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis,omitempty"`
}

type HistoryConfig struct {
	Driver          string       `yaml:"driver"`
	SQLite          SQLiteConfig `yaml:"sqlite,omitempty"`
	DefaultPageSize int          `yaml:"default_page_size"`
	MaxPageSize     int          `yaml:"max_page_size"`
}

type SQLiteConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}
