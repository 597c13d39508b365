package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Validate checks raw and returns the immutable PipelineConfig built from it.
//
// Three checks run in order: loader, tokenizer, then step ordering. Sections
// and steps without a log level are stamped with defaultLogLevel. raw is not
// modified.
func Validate(raw *Raw, defaultLogLevel string) (*PipelineConfig, error) {
	if raw == nil {
		return nil, NewConfigError(SectionLoader, "", "configuration is empty", ErrMissingSection)
	}

	level, err := normalizeLevel("", "log_level", defaultLogLevel, DefaultLogLevel)
	if err != nil {
		return nil, err
	}

	cfg := &PipelineConfig{logLevel: level}

	if cfg.loader, err = validateLoader(raw.Loader, level); err != nil {
		return nil, err
	}
	if cfg.tokenizer, err = validateTokenizer(raw.Tokenizer, level); err != nil {
		return nil, err
	}
	if cfg.steps, err = validateSteps(raw.Steps, level); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateLoader(raw *LoaderConfig, level string) (LoaderConfig, error) {
	if raw == nil {
		return LoaderConfig{}, NewConfigError(SectionLoader, "", "the data_loader section is missing", ErrMissingSection)
	}
	l := *raw
	if l.Name == "" {
		l.Name = SectionLoader
	} else if l.Name != SectionLoader {
		return LoaderConfig{}, NewConfigError(SectionLoader, "name",
			fmt.Sprintf("%q is not a valid loader name", l.Name), ErrInvalidOption)
	}
	if l.Type == "" {
		return LoaderConfig{}, NewConfigError(SectionLoader, "type", "type is required", ErrMissingSection)
	}
	if _, ok := loaderTypes[l.Type]; !ok {
		return LoaderConfig{}, NewConfigError(SectionLoader, "type",
			fmt.Sprintf("%q is not a valid loader type", l.Type), ErrUnknownLoaderType)
	}

	if l.BatchSize != nil {
		if *l.BatchSize <= 0 {
			return LoaderConfig{}, NewConfigError(SectionLoader, "batch_size",
				fmt.Sprintf("batch_size must be a positive integer, got %d", *l.BatchSize), ErrInvalidOption)
		}
		size := *l.BatchSize
		l.BatchSize = &size
	} else {
		size := DefaultBatchSize
		l.BatchSize = &size
	}

	if l.Type == LoaderCSV {
		if l.FilePath == "" {
			return LoaderConfig{}, NewConfigError(SectionLoader, "file_path",
				"csv data loaders require the file_path key", ErrMissingSection)
		}
		if l.Columns == nil || l.Columns.ID == "" || l.Columns.Data == "" {
			return LoaderConfig{}, NewConfigError(SectionLoader, "columns",
				"csv data loaders require a columns mapping with id and data", ErrMissingSection)
		}
		cols := *l.Columns
		cols.AdditionalColumns = append([]string(nil), l.Columns.AdditionalColumns...)
		l.Columns = &cols
		if l.Delimiter == "" {
			l.Delimiter = DefaultDelimiter
		}
		if len([]rune(l.Delimiter)) != 1 {
			return LoaderConfig{}, NewConfigError(SectionLoader, "delimiter",
				fmt.Sprintf("delimiter must be a single character, got %q", l.Delimiter), ErrInvalidOption)
		}
	}

	var err error
	if l.LogLevel, err = normalizeLevel(SectionLoader, "log_level", l.LogLevel, level); err != nil {
		return LoaderConfig{}, err
	}
	return l, nil
}

func validateTokenizer(raw *TokenizerConfig, level string) (TokenizerConfig, error) {
	if raw == nil {
		return TokenizerConfig{Name: SectionTokenizer, Type: TokenizerRegex, LogLevel: level}, nil
	}
	t := *raw
	if t.Name == "" {
		t.Name = SectionTokenizer
	} else if t.Name != SectionTokenizer {
		return TokenizerConfig{}, NewConfigError(SectionTokenizer, "name",
			fmt.Sprintf("%q is not a valid tokenizer name", t.Name), ErrInvalidOption)
	}
	if t.Type == "" {
		t.Type = TokenizerRegex
	}
	if _, ok := tokenizerTypes[t.Type]; !ok {
		return TokenizerConfig{}, NewConfigError(SectionTokenizer, "type",
			fmt.Sprintf("%q is not a valid tokenizer type", t.Type), ErrUnknownTokenizerType)
	}
	var err error
	if t.LogLevel, err = normalizeLevel(SectionTokenizer, "log_level", t.LogLevel, level); err != nil {
		return TokenizerConfig{}, err
	}
	return t, nil
}

func validateSteps(raw []StepConfig, level string) ([]StepConfig, error) {
	if len(raw) == 0 {
		return nil, NewConfigError(SectionSteps, "steps", "at least one step is required", ErrMissingSection)
	}

	steps := make([]StepConfig, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for i, s := range raw {
		field := fmt.Sprintf("steps[%d]", i)
		if s.Name == "" || s.Type == "" {
			return nil, NewConfigError(SectionSteps, field, "each step needs a name and a type", ErrMissingSection)
		}
		if !IsStepType(s.Name, s.Type) {
			return nil, NewConfigError(SectionSteps, field,
				fmt.Sprintf("%s/%s is not a valid step", s.Name, s.Type), ErrUnknownStepType)
		}

		step := s.clone()
		var err error
		if step.LogLevel, err = normalizeLevel(SectionSteps, field+".log_level", step.LogLevel, level); err != nil {
			return nil, err
		}
		if err := validateOptions(field, &step); err != nil {
			return nil, err
		}

		// Order checks count the current step as seen.
		seen[step.Type] = struct{}{}
		for _, conflicting := range forbidsAfter[step.Type] {
			if _, ok := seen[conflicting]; ok {
				return nil, &StepOrderError{Index: i, Step: step.Type, Conflicting: conflicting}
			}
		}
		for _, prerequisite := range requiresBefore[step.Type] {
			if _, ok := seen[prerequisite]; !ok {
				return nil, &MissingPrerequisiteError{Index: i, Step: step.Type, Prerequisite: prerequisite}
			}
		}

		steps = append(steps, step)
	}
	return steps, nil
}

// validateOptions checks the options the validator owns and stamps their
// defaults. Every other option is checked when the step is constructed.
func validateOptions(field string, step *StepConfig) error {
	if step.Type != StepRemoveStopwords {
		return nil
	}
	if step.Options == nil {
		step.Options = make(map[string]interface{})
	}

	list := StopwordsShortList
	if v, ok := step.Options["list"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return NewConfigError(SectionSteps, field+".options.list",
				fmt.Sprintf("list must be a string, got %T", v), ErrInvalidOption)
		}
		list = s
	}
	if _, ok := stopwordLists[list]; !ok {
		return NewConfigError(SectionSteps, field+".options.list",
			fmt.Sprintf("%q is not one of short_list, long_list or custom", list), ErrInvalidOption)
	}
	if list == StopwordsCustom {
		words, ok := StringList(step.Options["words"])
		if !ok || len(words) == 0 {
			return NewConfigError(SectionSteps, field+".options.words",
				"the custom stop-word list requires a non-empty words list", ErrInvalidOption)
		}
	}
	step.Options["list"] = list
	return nil
}

// StringList converts a decoded option value into a []string.
func StringList(v interface{}) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, e := range list {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func normalizeLevel(section, field, level, fallback string) (string, error) {
	if level == "" {
		level = fallback
	}
	if level == "" {
		level = DefaultLogLevel
	}
	parsed, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return "", NewConfigError(section, field, fmt.Sprintf("%q is not a valid log level", level), ErrInvalidOption)
	}
	return parsed.String(), nil
}
