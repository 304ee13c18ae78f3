package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Auth        AuthConfig        `mapstructure:"auth" validate:"required"`
	Storage     StorageConfig     `mapstructure:"storage" validate:"required"`
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface" validate:"required"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Pixabay     PixabayConfig     `mapstructure:"pixabay"`
	Task        TaskConfig        `mapstructure:"task" validate:"required"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Runtime     RuntimeConfig     `mapstructure:"runtime" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeoutSeconds bounds graceful shutdown of the HTTP server.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains the shared secret used to verify access tokens issued
// by the identity provider.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// ClockSkewSeconds is the leeway applied to exp/nbf checks.
	ClockSkewSeconds int `mapstructure:"clock_skew_seconds" validate:"gte=0"`
}

// StorageConfig configures the S3 bucket holding uploads and renders.
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket" validate:"required"`
	Region          string `mapstructure:"region" validate:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	// Endpoint overrides the AWS endpoint (MinIO, localstack).
	Endpoint       string `mapstructure:"endpoint"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	// SignedURLTTLMinutes is the lifetime of presigned download URLs.
	SignedURLTTLMinutes int `mapstructure:"signed_url_ttl_minutes" validate:"gte=1"`
	// SignedURLCacheSize bounds the number of cached presigned URLs.
	SignedURLCacheSize int `mapstructure:"signed_url_cache_size" validate:"gte=1"`
}

// HuggingFaceConfig contains the token and Space identifiers used by the
// generation pipeline.
type HuggingFaceConfig struct {
	Token            string  `mapstructure:"token" validate:"required"`
	ScriptSpaceID    string  `mapstructure:"script_space_id" validate:"required"`
	VoiceSpaceID     string  `mapstructure:"voice_space_id" validate:"required"`
	VideoSpaceID     string  `mapstructure:"video_space_id" validate:"required"`
	SegmentSpaceID   string  `mapstructure:"segment_space_id" validate:"required"`
	InferenceBaseURL string  `mapstructure:"inference_base_url" validate:"required,url"`
	ImageModel       string  `mapstructure:"image_model" validate:"required"`
	ASRModel         string  `mapstructure:"asr_model" validate:"required"`
	RequestsPerSec   float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	MaxRetries       uint64  `mapstructure:"max_retries"`
	// SegmentConcurrency caps parallel clip generations per task.
	SegmentConcurrency int `mapstructure:"segment_concurrency" validate:"gte=1"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	// Provider selects the script generator: "space" or "gemini".
	Provider     string `mapstructure:"provider" validate:"oneof=space gemini"`
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	ModelName    string `mapstructure:"model_name"`
	// MaxRetries is the maximum number of retries for transient Gemini errors.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	// RetryDelaySeconds is the base delay for exponential backoff between retries.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}

// PixabayConfig configures stock asset search.
type PixabayConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	PerPage int    `mapstructure:"per_page" validate:"gte=3,lte=200"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount            int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize              int `mapstructure:"queue_size" validate:"gte=1"`
	StuckTaskAgeMinutes    int `mapstructure:"stuck_task_age_minutes" validate:"gte=1"`
	StuckCheckIntervalMins int `mapstructure:"stuck_check_interval_minutes" validate:"gte=1"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RuntimeConfig points at scratch space used while rendering.
type RuntimeConfig struct {
	Dir         string `mapstructure:"dir" validate:"required"`
	FFmpegPath  string `mapstructure:"ffmpeg_path" validate:"required"`
	FFprobePath string `mapstructure:"ffprobe_path" validate:"required"`
	FontFile    string `mapstructure:"font_file"`
}
