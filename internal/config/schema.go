package config

// Config holds papercast configuration.
// Stored at: ~/.papercast/config.yaml
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	TTS      TTSConfig      `mapstructure:"tts" yaml:"tts"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Limits   LimitsConfig   `mapstructure:"limits" yaml:"limits"`
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Status   StatusConfig   `mapstructure:"status" yaml:"status"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
}

// LLMConfig selects the completion backend.
type LLMConfig struct {
	Provider  string                    `mapstructure:"provider" yaml:"provider"` // key into Providers
	Providers map[string]LLMProviderCfg `mapstructure:"providers" yaml:"providers"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type       string `mapstructure:"type" yaml:"type"`               // "openrouter", "gemini"
	Model      string `mapstructure:"model" yaml:"model"`             // Model name
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`         // API key (supports ${ENV_VAR} syntax)
	RPM        int    `mapstructure:"rpm" yaml:"rpm"`                 // Requests per minute
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"` // Transport retries
}

// TTSConfig selects the speech backend and narration voices.
type TTSConfig struct {
	Provider     string                    `mapstructure:"provider" yaml:"provider"`
	Providers    map[string]TTSProviderCfg `mapstructure:"providers" yaml:"providers"`
	ProseVoice   string                    `mapstructure:"prose_voice" yaml:"prose_voice"`
	SummaryVoice string                    `mapstructure:"summary_voice" yaml:"summary_voice"`
	MaxChars     int                       `mapstructure:"max_chars" yaml:"max_chars"`
	MarkupPauses bool                      `mapstructure:"markup_pauses" yaml:"markup_pauses"`
}

// TTSProviderCfg configures a speech provider.
type TTSProviderCfg struct {
	Type         string  `mapstructure:"type" yaml:"type"` // "openai"
	Model        string  `mapstructure:"model" yaml:"model"`
	APIKey       string  `mapstructure:"api_key" yaml:"api_key"`
	Format       string  `mapstructure:"format" yaml:"format"`
	Speed        float64 `mapstructure:"speed" yaml:"speed"`
	Instructions string  `mapstructure:"instructions" yaml:"instructions"`
	RPM          int     `mapstructure:"rpm" yaml:"rpm"`
}

// PipelineConfig tunes the stages.
type PipelineConfig struct {
	Method      string      `mapstructure:"method" yaml:"method"` // "full" or "abstract"
	BatchSize   int         `mapstructure:"batch_size" yaml:"batch_size"`
	Retries     int         `mapstructure:"retries" yaml:"retries"`
	AuthorPages int         `mapstructure:"author_pages" yaml:"author_pages"`
	AuthorCap   int         `mapstructure:"author_cap" yaml:"author_cap"`
	PauseCue    string      `mapstructure:"pause_cue" yaml:"pause_cue"`
	KeepWorkDir bool        `mapstructure:"keep_work_dir" yaml:"keep_work_dir"`
	Bands       BandsConfig `mapstructure:"bands" yaml:"bands"`
}

// BandsConfig bounds the accepted length ratio of rewritten text.
// MathMax is indexed by math symbol frequency 1..5.
type BandsConfig struct {
	CitationMin    float64   `mapstructure:"citation_min" yaml:"citation_min"`
	CitationMax    float64   `mapstructure:"citation_max" yaml:"citation_max"`
	MathMin        float64   `mapstructure:"math_min" yaml:"math_min"`
	MathMax        []float64 `mapstructure:"math_max" yaml:"math_max"`
	HyphenationMin float64   `mapstructure:"hyphenation_min" yaml:"hyphenation_min"`
	HyphenationMax float64   `mapstructure:"hyphenation_max" yaml:"hyphenation_max"`
}

// LimitsConfig bounds accepted inputs.
type LimitsConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
	MaxPages int   `mapstructure:"max_pages" yaml:"max_pages"`
}

// SourceConfig configures page rendering and partitioning.
type SourceConfig struct {
	Rasterizer        string `mapstructure:"rasterizer" yaml:"rasterizer"` // "pdftoppm", "fitz"
	DPI               int    `mapstructure:"dpi" yaml:"dpi"`
	Partitioner       string `mapstructure:"partitioner" yaml:"partitioner"` // "none", "local", "unstructured"
	PartitionerURL    string `mapstructure:"partitioner_url" yaml:"partitioner_url"`
	PartitionerAPIKey string `mapstructure:"partitioner_api_key" yaml:"partitioner_api_key"`
}

// StatusConfig selects the run status store.
type StatusConfig struct {
	Backend       string `mapstructure:"backend" yaml:"backend"` // "sqlite", "redis", "memory"
	SQLitePath    string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// StorageConfig locates the artifact store. An empty root means the home
// directory's blobs folder.
type StorageConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openrouter",
			Providers: map[string]LLMProviderCfg{
				"openrouter": {
					Type:       "openrouter",
					Model:      "google/gemini-2.5-flash",
					APIKey:     "${OPENROUTER_API_KEY}",
					RPM:        150,
					MaxRetries: 3,
				},
				"gemini": {
					Type:   "gemini",
					Model:  "gemini-2.5-flash",
					APIKey: "${GEMINI_API_KEY}",
					RPM:    60,
				},
			},
		},
		TTS: TTSConfig{
			Provider: "openai",
			Providers: map[string]TTSProviderCfg{
				"openai": {
					Type:   "openai",
					Model:  "gpt-4o-mini-tts",
					APIKey: "${OPENAI_API_KEY}",
					Format: "mp3",
					Speed:  1.0,
					RPM:    500,
				},
			},
			ProseVoice:   "onyx",
			SummaryVoice: "nova",
			MaxChars:     4096,
			MarkupPauses: true,
		},
		Pipeline: PipelineConfig{
			Method:      "full",
			BatchSize:   20,
			Retries:     3,
			AuthorPages: 5,
			AuthorCap:   5,
			PauseCue:    "...",
			Bands: BandsConfig{
				CitationMin:    0.7,
				CitationMax:    1.1,
				MathMin:        0.9,
				MathMax:        []float64{1.4, 2, 3, 5, 10},
				HyphenationMin: 0.5,
				HyphenationMax: 2.0,
			},
		},
		Limits: LimitsConfig{
			MaxBytes: 50 << 20,
			MaxPages: 60,
		},
		Source: SourceConfig{
			Rasterizer:  "pdftoppm",
			DPI:         150,
			Partitioner: "none",
		},
		Status: StatusConfig{
			Backend:     "sqlite",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "papercast:",
		},
	}
}
