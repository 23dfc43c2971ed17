package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"fixnames/internal/charset"
	"fixnames/internal/watcher"
)

// validate is the singleton validator instance. Field names in its errors
// are the config keys, not the Go field names.
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Config key with the issue (e.g., "substitutions[0].from")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

func (e ConfigValidationError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

// Validate checks the settings a run depends on and returns the first
// problem as a *ConfigError. Paths are not checked; the CLI may still
// override the root.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		issues := structErrors(err)
		if len(issues) == 0 {
			return &ConfigError{Type: ValidationError, Message: err.Error(), Err: err}
		}
		return &ConfigError{Type: ValidationError, Message: issues[0].String(), Err: err}
	}

	for _, issue := range validateCustomRules(cfg) {
		if issue.Severity == SeverityError {
			return &ConfigError{Type: ValidationError, Message: issue.String()}
		}
	}
	return nil
}

// ValidateConfig checks the configuration for errors and returns all findings.
func ValidateConfig(cfg *Config) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
		Valid:    true,
	}

	var issues []ConfigValidationError
	if err := validate.Struct(cfg); err != nil {
		issues = append(issues, structErrors(err)...)
	}
	issues = append(issues, validateCustomRules(cfg)...)
	issues = append(issues, ValidatePaths(cfg)...)

	for _, issue := range issues {
		if issue.Severity == SeverityError {
			result.Errors = append(result.Errors, issue)
		} else {
			result.Warnings = append(result.Warnings, issue)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func validateCustomRules(cfg *Config) []ConfigValidationError {
	var issues []ConfigValidationError
	issues = append(issues, ValidateEncodings(cfg)...)
	issues = append(issues, ValidateCascade(cfg)...)
	issues = append(issues, ValidateSubstitutions(cfg)...)
	issues = append(issues, ValidatePrune(cfg)...)
	issues = append(issues, ValidateJournal(cfg)...)
	issues = append(issues, ValidateWatch(cfg)...)
	return issues
}

// structErrors converts validator errors into issues keyed by config key.
func structErrors(err error) []ConfigValidationError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	issues := make([]ConfigValidationError, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}

		var msg string
		switch e.Tag() {
		case "required":
			msg = "is required"
		case "oneof":
			msg = fmt.Sprintf("must be one of [%s], got %q", e.Param(), e.Value())
		case "gte":
			msg = fmt.Sprintf("must be at least %s", e.Param())
		default:
			msg = fmt.Sprintf("validation failed on '%s' tag (value: %v)", e.Tag(), e.Value())
		}
		issues = append(issues, ConfigValidationError{Field: field, Message: msg, Severity: SeverityError})
	}
	return issues
}

// ValidateEncodings checks that both encodings resolve.
func ValidateEncodings(cfg *Config) []ConfigValidationError {
	var errs []ConfigValidationError

	var target, fs *charset.Codec
	if cfg.TargetEncoding != "" {
		c, err := charset.Lookup(cfg.TargetEncoding)
		if err != nil {
			errs = append(errs, ConfigValidationError{
				Field:    "target_encoding",
				Message:  "unknown encoding: " + cfg.TargetEncoding,
				Severity: SeverityError,
			})
		}
		target = c
	}
	if cfg.FSEncoding != "" {
		c, err := charset.Lookup(cfg.FSEncoding)
		if err != nil {
			errs = append(errs, ConfigValidationError{
				Field:    "fs_encoding",
				Message:  "unknown encoding: " + cfg.FSEncoding,
				Severity: SeverityError,
			})
		}
		fs = c
	}

	if target != nil && fs != nil && !fs.Wide() && target.Name() != fs.Name() {
		errs = append(errs, ConfigValidationError{
			Field:    "fs_encoding",
			Message:  fmt.Sprintf("names with characters outside %s will be skipped; consider target_encoding: %s", fs.Name(), fs.Name()),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// ValidateCascade checks every decode strategy name and flags strategies
// that can never run.
func ValidateCascade(cfg *Config) []ConfigValidationError {
	var errs []ConfigValidationError

	seen := make(map[charset.Label]int)
	catchAll := -1
	for i, name := range cfg.Cascade {
		field := formatField("cascade", i)
		if name == "" {
			continue // reported by the struct tags
		}
		s, err := charset.StrategyByName(name)
		if err != nil {
			errs = append(errs, ConfigValidationError{
				Field:    field,
				Message:  "unknown decode strategy: " + name,
				Severity: SeverityError,
			})
			continue
		}

		label := s.Name()
		if first, ok := seen[label]; ok {
			errs = append(errs, ConfigValidationError{
				Field:    field,
				Message:  fmt.Sprintf("duplicate strategy %q, already at index %d", label, first),
				Severity: SeverityWarning,
			})
			continue
		}
		seen[label] = i

		if catchAll >= 0 {
			errs = append(errs, ConfigValidationError{
				Field:    field,
				Message:  fmt.Sprintf("unreachable: %s at index %d decodes every name", charset.ISO88591, catchAll),
				Severity: SeverityWarning,
			})
		}
		if label == charset.ISO88591 && catchAll < 0 {
			catchAll = i
		}
	}
	return errs
}

// ValidateSubstitutions checks the configured rules.
func ValidateSubstitutions(cfg *Config) []ConfigValidationError {
	var errs []ConfigValidationError

	firstIdx := make(map[string]int)
	for i, rule := range cfg.Substitutions {
		field := formatField("substitutions", i)
		if rule.From == "" {
			continue // reported by the struct tags
		}

		if strings.ContainsAny(rule.To, "/\x00") {
			errs = append(errs, ConfigValidationError{
				Field:    field + ".to",
				Message:  fmt.Sprintf("replacement %q contains a path separator or NUL", rule.To),
				Severity: SeverityError,
			})
		}
		if strings.Contains(rule.To, rule.From) {
			errs = append(errs, ConfigValidationError{
				Field:    field + ".to",
				Message:  fmt.Sprintf("replacement %q contains its own pattern %q; names grow on every pass", rule.To, rule.From),
				Severity: SeverityWarning,
			})
		}
		if first, ok := firstIdx[rule.From]; ok {
			errs = append(errs, ConfigValidationError{
				Field:    field + ".from",
				Message:  fmt.Sprintf("duplicate pattern %q, already at index %d", rule.From, first),
				Severity: SeverityWarning,
			})
		} else {
			firstIdx[rule.From] = i
		}
	}

	if cfg.ReplaceSubstitutions && len(cfg.Substitutions) == 0 {
		errs = append(errs, ConfigValidationError{
			Field:    "replace_substitutions",
			Message:  "set without substitutions; names are only re-encoded",
			Severity: SeverityWarning,
		})
	}
	return errs
}

// ValidatePrune flags prune entries that can never match a name.
func ValidatePrune(cfg *Config) []ConfigValidationError {
	var errs []ConfigValidationError
	check := func(key string, names []string) {
		for i, name := range names {
			if name == "" || strings.ContainsRune(name, filepath.Separator) {
				errs = append(errs, ConfigValidationError{
					Field:    formatField(key, i),
					Message:  fmt.Sprintf("%q is not a plain name and never matches", name),
					Severity: SeverityWarning,
				})
			}
		}
	}
	check("prune_dirs", cfg.PruneDirs)
	check("prune_files", cfg.PruneFiles)
	return errs
}

// ValidateJournal checks the free-form journal section.
func ValidateJournal(cfg *Config) []ConfigValidationError {
	if _, err := cfg.JournalOptions(); err != nil {
		return []ConfigValidationError{{
			Field:    "journal",
			Message:  err.Error(),
			Severity: SeverityError,
		}}
	}
	return nil
}

// ValidateWatch checks watch mode timing and ignore patterns.
func ValidateWatch(cfg *Config) []ConfigValidationError {
	var errs []ConfigValidationError

	threshold := time.Duration(cfg.Watch.StableThresholdMs) * time.Millisecond
	if threshold >= watcher.StabilityTimeout {
		errs = append(errs, ConfigValidationError{
			Field:    "watch.stable_threshold_ms",
			Message:  fmt.Sprintf("files can never be stable for longer than the %s timeout", watcher.StabilityTimeout),
			Severity: SeverityWarning,
		})
	}

	for i, pattern := range cfg.Watch.IgnorePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, ConfigValidationError{
				Field:    formatField("watch.ignore_patterns", i),
				Message:  fmt.Sprintf("malformed pattern %q", pattern),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// ValidatePaths checks that the root exists and that the journal directory
// is not shadowed by a file.
func ValidatePaths(cfg *Config) []ConfigValidationError {
	var errs []ConfigValidationError

	if cfg.Root == "" {
		errs = append(errs, ConfigValidationError{
			Field:    "root",
			Message:  "not set; the current directory is used",
			Severity: SeverityWarning,
		})
	} else {
		info, err := os.Stat(cfg.Root)
		switch {
		case os.IsNotExist(err):
			errs = append(errs, ConfigValidationError{
				Field:    "root",
				Message:  "directory does not exist: " + cfg.Root,
				Severity: SeverityError,
			})
		case os.IsPermission(err):
			errs = append(errs, ConfigValidationError{
				Field:    "root",
				Message:  "directory is not accessible: " + cfg.Root,
				Severity: SeverityError,
			})
		case err != nil:
			errs = append(errs, ConfigValidationError{
				Field:    "root",
				Message:  "error accessing directory: " + err.Error(),
				Severity: SeverityError,
			})
		case !info.IsDir():
			errs = append(errs, ConfigValidationError{
				Field:    "root",
				Message:  "path is not a directory: " + cfg.Root,
				Severity: SeverityError,
			})
		}
	}

	opts, err := cfg.JournalOptions()
	if err != nil || !opts.Enabled {
		return errs
	}
	dir := opts.Dir(cfg.Root)
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		errs = append(errs, ConfigValidationError{
			Field:    "journal.directory",
			Message:  "path exists but is not a directory: " + dir,
			Severity: SeverityError,
		})
	}
	return errs
}

// formatField creates a field reference string for validation errors.
func formatField(name string, index int) string {
	return fmt.Sprintf("%s[%d]", name, index)
}
