package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "MIYOG"

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the given config file when path is
// non-empty. Without a path it looks for config.yaml in the working directory.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("auth.clock_skew_seconds", 60)

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.signed_url_ttl_minutes", 60)
	v.SetDefault("storage.signed_url_cache_size", 1024)

	v.SetDefault("huggingface.script_space_id", "amoghkrishnan/script_gen")
	v.SetDefault("huggingface.voice_space_id", "amoghkrishnan/chatterbox-tts")
	v.SetDefault("huggingface.video_space_id", "amoghkrishnan/TEXT-TO-VIDEO")
	v.SetDefault("huggingface.segment_space_id", "amoghkrishnan/VIDEO-TIMESTAMPED-JSON")
	v.SetDefault("huggingface.inference_base_url", "https://router.huggingface.co/hf-inference/models")
	v.SetDefault("huggingface.image_model", "black-forest-labs/FLUX.1-schnell")
	v.SetDefault("huggingface.asr_model", "openai/whisper-large-v3")
	v.SetDefault("huggingface.requests_per_second", 2.0)
	v.SetDefault("huggingface.max_retries", 3)
	v.SetDefault("huggingface.segment_concurrency", 2)

	v.SetDefault("llm.provider", "space")
	v.SetDefault("llm.model_name", "gemini-2.5-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("pixabay.base_url", "https://pixabay.com/api/")
	v.SetDefault("pixabay.per_page", 20)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 60)
	v.SetDefault("task.stuck_check_interval_minutes", 5)

	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:3000",
		"https://myg-three.vercel.app",
	})

	v.SetDefault("runtime.dir", "/tmp/loom_runtime")
	v.SetDefault("runtime.ffmpeg_path", "ffmpeg")
	v.SetDefault("runtime.ffprobe_path", "ffprobe")
}

// bindEnvs registers keys that have no default so AutomaticEnv can see them
// during Unmarshal.
func bindEnvs(v *viper.Viper) {
	for _, key := range []string{
		"database.url",
		"auth.jwt_secret",
		"storage.bucket",
		"storage.access_key_id",
		"storage.secret_access_key",
		"storage.endpoint",
		"storage.force_path_style",
		"huggingface.token",
		"llm.gemini_api_key",
		"pixabay.api_key",
		"runtime.font_file",
	} {
		// BindEnv only fails when given no key.
		_ = v.BindEnv(key)
	}
}
