package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperdaily/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LLMConfig holds settings for the enrichment backend.
type LLMConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the OpenAI-compatible API root
	// (e.g. "https://api.deepseek.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key. Usually supplied via the
	// secrets directory rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for a failed
	// enrichment sub-call (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SourceConfig holds settings for the source adapters.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Keywords are the default search terms for keyword sources.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// Categories restricts keyword searches to source category codes
	// (e.g. "cs.LG").
	Categories []string `json:"categories" yaml:"categories"`

	// Limit caps the number of results per fetch (default 20).
	Limit int `json:"limit" yaml:"limit"`
}

// NotionConfig holds settings for the Notion sink.
type NotionConfig struct {
	// Enabled gates the sink at wiring time.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// DatabaseID is the target Notion database.
	DatabaseID string `json:"database_id,omitempty" yaml:"database_id,omitempty"`

	// APIKey is usually supplied via the secrets directory.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// LibraryConfig holds settings for the local SQLite library sink.
type LibraryConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the database file location (default "output/library.db").
	Path string `json:"path" yaml:"path"`
}

// ArchiveConfig holds settings for the YAML archive sink.
type ArchiveConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the directory receiving one YAML record per paper.
	Dir string `json:"dir" yaml:"dir"`
}

// RoutingConfig maps a paper's category to sink collection IDs.
// Categories not present in the map fall back to Default.
type RoutingConfig struct {
	Collections map[string][]string `json:"collections" yaml:"collections"`
	Default     []string            `json:"default" yaml:"default"`
}

// CollectionsFor returns the collection IDs for category. The result
// is a pure function of the category and this config.
func (r RoutingConfig) CollectionsFor(category string) []string {
	if cols, ok := r.Collections[category]; ok {
		return cols
	}
	return r.Default
}

// ProcessConfig holds processor-level settings.
type ProcessConfig struct {
	// MaxRetries bounds fetch and download retries (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// ParallelDownloads is the PDF worker pool width (default 4).
	ParallelDownloads int `json:"parallel_downloads" yaml:"parallel_downloads"`

	// PDFDir is where downloaded PDFs land (default "papers/pdf").
	PDFDir string `json:"pdf_dir" yaml:"pdf_dir"`

	// CacheDir holds the per-paper enrichment cache files
	// (default "output/cache").
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// CheckpointDir holds the per-bucket idempotency ledgers
	// (default "output/checkpoints").
	CheckpointDir string `json:"checkpoint_dir" yaml:"checkpoint_dir"`

	// OutputDir receives run artifacts such as feed snapshots
	// (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// DownloadPDF enables PDF download during runs.
	DownloadPDF bool `json:"download_pdf" yaml:"download_pdf"`

	// SkipExisting consults sink existence checks before inserting.
	SkipExisting bool `json:"skip_existing" yaml:"skip_existing"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Source  SourceConfig  `json:"source" yaml:"source"`
	LLM     LLMConfig     `json:"llm" yaml:"llm"`
	Notion  NotionConfig  `json:"notion" yaml:"notion"`
	Library LibraryConfig `json:"library" yaml:"library"`
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
	Routing RoutingConfig `json:"routing" yaml:"routing"`
	Process ProcessConfig `json:"process" yaml:"process"`
}
