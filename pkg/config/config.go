// Package config holds the pipeline configuration document and its validator.
//
// A document is decoded into Raw, then Validate turns it into an immutable
// PipelineConfig. Nothing is constructed from a Raw that has not passed
// Validate.
package config

// Raw is the pipeline configuration document as written by the user.
type Raw struct {
	Loader    *LoaderConfig    `json:"data_loader,omitempty" yaml:"data_loader,omitempty"`
	Tokenizer *TokenizerConfig `json:"tokenizer,omitempty" yaml:"tokenizer,omitempty"`
	Steps     []StepConfig     `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// LoaderConfig configures the data loader section.
type LoaderConfig struct {
	Name             string   `json:"name,omitempty" yaml:"name,omitempty"`
	Type             string   `json:"type" yaml:"type"`
	FilePath         string   `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	Columns          *Columns `json:"columns,omitempty" yaml:"columns,omitempty"`
	Delimiter        string   `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	BatchSize        *int     `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	PreserveOriginal bool     `json:"preserve_original,omitempty" yaml:"preserve_original,omitempty"`
	LogLevel         string   `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// Columns maps csv header names onto item fields.
type Columns struct {
	ID                string   `json:"id" yaml:"id"`
	Data              string   `json:"data" yaml:"data"`
	AdditionalColumns []string `json:"additional_columns,omitempty" yaml:"additional_columns,omitempty"`
}

// TokenizerConfig configures the tokenizer shared by the steps.
type TokenizerConfig struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Type     string `json:"type" yaml:"type"`
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// StepConfig configures a single transformation step.
type StepConfig struct {
	Name     string                 `json:"name" yaml:"name"`
	Type     string                 `json:"type" yaml:"type"`
	LogLevel string                 `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

// PipelineConfig is a validated configuration. It cannot be modified once
// built; accessors return copies.
type PipelineConfig struct {
	loader    LoaderConfig
	tokenizer TokenizerConfig
	steps     []StepConfig
	logLevel  string
}

// Loader returns the validated loader section.
func (c *PipelineConfig) Loader() LoaderConfig {
	l := c.loader
	if c.loader.Columns != nil {
		cols := *c.loader.Columns
		cols.AdditionalColumns = append([]string(nil), c.loader.Columns.AdditionalColumns...)
		l.Columns = &cols
	}
	if c.loader.BatchSize != nil {
		size := *c.loader.BatchSize
		l.BatchSize = &size
	}
	return l
}

// BatchSize returns the number of items per emitted batch.
func (c *PipelineConfig) BatchSize() int {
	if c.loader.BatchSize == nil {
		return DefaultBatchSize
	}
	return *c.loader.BatchSize
}

// Tokenizer returns the tokenizer section, defaulted when absent.
func (c *PipelineConfig) Tokenizer() TokenizerConfig {
	return c.tokenizer
}

// Steps returns the ordered transformation steps.
func (c *PipelineConfig) Steps() []StepConfig {
	out := make([]StepConfig, len(c.steps))
	for i, s := range c.steps {
		out[i] = s.clone()
	}
	return out
}

// LogLevel returns the run's default log level.
func (c *PipelineConfig) LogLevel() string {
	return c.logLevel
}

func (s StepConfig) clone() StepConfig {
	c := s
	if s.Options != nil {
		c.Options = make(map[string]interface{}, len(s.Options))
		for k, v := range s.Options {
			c.Options[k] = v
		}
	}
	return c
}
