package common

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

//go:embed config.default.yaml
var defaultConfig []byte

const (
	ConfigPathEnv = "CONFIG_PATH"
	EnvPrefix     = "ONLEADS_"
)

// Well known environment variables and the config keys they set
var envKeys = map[string]string{
	"NOTION_TOKEN":              "notion.token",
	"NOTION_LEADS_DATABASE_ID":  "notion.databases.leads",
	"NOTION_EMAILS_DATABASE_ID": "notion.databases.emails",
	"FIRECRAWL_API_KEY":         "scraper.apiKey",
	"OPENAI_API_KEY":            "models.extraction.apiKey",
	"GOOGLE_API_KEY":            "models.drafting.apiKey",
	"REDIS_ADDR":                "database.redis.addrs",
}

// ConfigManager loads configuration in layers: the embedded defaults, an optional
// yaml or json file, then the environment
type ConfigManager[T any] struct {
	kf     *koanf.Koanf
	path   string
	config T
}

type ConfigOption func(*configOptions)

type configOptions struct {
	path string
}

// WithConfigPath loads the given file instead of $CONFIG_PATH
func WithConfigPath(path string) ConfigOption {
	return func(o *configOptions) { o.path = path }
}

func NewConfigManager[T any](opts ...ConfigOption) (*ConfigManager[T], error) {
	o := &configOptions{path: os.Getenv(ConfigPathEnv)}
	for _, opt := range opts {
		opt(o)
	}

	cm := &ConfigManager[T]{
		kf:   koanf.New("."),
		path: o.path,
	}

	if err := cm.kf.Load(rawbytes.Provider(defaultConfig), yaml.Parser()); err != nil {
		return nil, err
	}

	if cm.path != "" {
		if err := cm.loadFile(cm.path); err != nil {
			return nil, err
		}
	}

	if err := cm.loadEnv(); err != nil {
		return nil, err
	}

	if err := cm.unmarshal(); err != nil {
		return nil, err
	}

	return cm, nil
}

func (cm *ConfigManager[T]) GetConfig() T {
	return cm.config
}

// Path returns the config file that was loaded, empty when only defaults and the
// environment were used
func (cm *ConfigManager[T]) Path() string {
	return cm.path
}

func (cm *ConfigManager[T]) loadFile(path string) error {
	var parser koanf.Parser = yaml.Parser()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parser = json.Parser()
	}

	if err := cm.kf.Load(file.Provider(path), parser); err != nil {
		return err
	}

	log.Debug().Str("path", path).Msg("loaded config file")
	return nil
}

// loadEnv applies the well known variables and any ONLEADS_ variable naming a
// known key, e.g. ONLEADS_NOTION_PAGESIZE sets notion.pageSize
func (cm *ConfigManager[T]) loadEnv() error {
	known := make(map[string]string)
	for _, key := range cm.kf.Keys() {
		known[strings.ToLower(strings.ReplaceAll(key, ".", "_"))] = key
	}

	return cm.kf.Load(env.ProviderWithValue("", ".", func(name, value string) (string, interface{}) {
		key, ok := envKeys[name]
		if !ok {
			if !strings.HasPrefix(name, EnvPrefix) {
				return "", nil
			}
			key, ok = known[strings.ToLower(strings.TrimPrefix(name, EnvPrefix))]
			if !ok {
				return "", nil
			}
		}
		if value == "" {
			return "", nil
		}
		if key == "database.redis.addrs" {
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil)
}

func (cm *ConfigManager[T]) unmarshal() error {
	var config T
	err := cm.kf.UnmarshalWithConf("", &config, koanf.UnmarshalConf{
		Tag: "key",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &config,
			WeaklyTypedInput: true,
			TagName:          "key",
		},
	})
	if err != nil {
		return err
	}
	cm.config = config
	return nil
}
