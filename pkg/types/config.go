package types

import (
	"time"
)

// Mode constants
const (
	ModeLocal  = "local"  // In-memory records, in-process locks
	ModeRemote = "remote" // Notion records, Redis locks when configured
)

// AppConfig is the root configuration for onleads
type AppConfig struct {
	Mode       string `key:"mode" json:"mode"` // "local" or "remote"
	DebugMode  bool   `key:"debugMode" json:"debug_mode"`
	PrettyLogs bool   `key:"prettyLogs" json:"pretty_logs"`

	Database DatabaseConfig `key:"database" json:"database"`
	Notion   NotionConfig   `key:"notion" json:"notion"`
	Drafting DraftingConfig `key:"drafting" json:"drafting"`
	Scraper  ScraperConfig  `key:"scraper" json:"scraper"`
	Models   ModelsConfig   `key:"models" json:"models"`
}

// IsLocalMode returns true if running in local mode (no Notion, no Redis)
func (c *AppConfig) IsLocalMode() bool {
	return c.Mode == ModeLocal
}

// ----------------------------------------------------------------------------
// Database Configuration
// ----------------------------------------------------------------------------

type DatabaseConfig struct {
	Redis RedisConfig `key:"redis" json:"redis"`
}

type RedisMode string

const (
	RedisModeSingle  RedisMode = "single"
	RedisModeCluster RedisMode = "cluster"
)

type RedisConfig struct {
	Mode         RedisMode     `key:"mode" json:"mode"`
	Addrs        []string      `key:"addrs" json:"addrs"`
	Username     string        `key:"username" json:"username"`
	Password     string        `key:"password" json:"password"`
	ClientName   string        `key:"clientName" json:"client_name"`
	PoolSize     int           `key:"poolSize" json:"pool_size"`
	DialTimeout  time.Duration `key:"dialTimeout" json:"dial_timeout"`
	ReadTimeout  time.Duration `key:"readTimeout" json:"read_timeout"`
	WriteTimeout time.Duration `key:"writeTimeout" json:"write_timeout"`
	MaxRetries   int           `key:"maxRetries" json:"max_retries"`
}

// IsConfigured returns true when at least one address is set
func (c RedisConfig) IsConfigured() bool {
	return len(c.Addrs) > 0 && c.Addrs[0] != ""
}

// ----------------------------------------------------------------------------
// Notion Configuration
// ----------------------------------------------------------------------------

// NotionConfig holds the credentials and collection identifiers for the Notion backend.
// Databases is keyed by RecordKind ("leads", "emails").
type NotionConfig struct {
	Token     string            `key:"token" json:"token"`
	BaseURL   string            `key:"baseURL" json:"base_url"`
	Version   string            `key:"version" json:"version"`
	Timeout   time.Duration     `key:"timeout" json:"timeout"`
	PageSize  int               `key:"pageSize" json:"page_size"`
	Databases map[string]string `key:"databases" json:"databases"`
}

// DatabaseID returns the configured database identifier for a kind
func (c NotionConfig) DatabaseID(kind RecordKind) string {
	if c.Databases == nil {
		return ""
	}
	return c.Databases[string(kind)]
}

// ----------------------------------------------------------------------------
// Drafting Configuration
// ----------------------------------------------------------------------------

type DraftingConfig struct {
	LockTtlS    int `key:"lockTtlS" json:"lock_ttl_s"`
	LockRetries int `key:"lockRetries" json:"lock_retries"`
}

// ----------------------------------------------------------------------------
// Collaborator Configuration
// ----------------------------------------------------------------------------

type ScraperConfig struct {
	APIKey         string        `key:"apiKey" json:"api_key"`
	BaseURL        string        `key:"baseURL" json:"base_url"`
	Timeout        time.Duration `key:"timeout" json:"timeout"`
	MaxChunkLength int           `key:"maxChunkLength" json:"max_chunk_length"`
}

type ModelsConfig struct {
	Extraction ModelConfig `key:"extraction" json:"extraction"`
	Drafting   ModelConfig `key:"drafting" json:"drafting"`
}

// ModelConfig points at an OpenAI-compatible chat completions endpoint
type ModelConfig struct {
	APIKey  string        `key:"apiKey" json:"api_key"`
	BaseURL string        `key:"baseURL" json:"base_url"`
	Model      string        `key:"model" json:"model"`
	Timeout    time.Duration `key:"timeout" json:"timeout"`
	MaxRetries int           `key:"maxRetries" json:"max_retries"`
}
