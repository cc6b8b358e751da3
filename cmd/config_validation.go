package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateStoreConfig(get, &validationErrs)
	validateMinioConfig(get, &validationErrs)
	validateRedisConfig(get, &validationErrs)
	validateEditorConfig(get, &validationErrs)
	validateWebConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateStoreConfig validates the post store backend and the settings it requires.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateStoreConfig(get configGetter, errs *[]string) {
	backend := "firestore"
	if raw := get("settings.store.backend"); raw != nil {
		value, parseErr := parseStrictString(raw)
		if parseErr != nil {
			appendValidationError(errs, "settings.store.backend must be a string")
			return
		}
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			backend = trimmed
		}
	}

	switch backend {
	case "firestore":
		validateRequiredString(get, "settings.db.firestore.project_id", errs)
		validateOptionalStringNonEmpty(get, "settings.db.firestore.credential_file", errs)
	case "mongo":
		validateRequiredMap(get, "settings.db.mongo", []string{"addr", "db"}, errs)
	default:
		appendValidationError(errs, "settings.store.backend must be one of firestore, mongo")
	}

	validateOptionalIntMin(get, "settings.categories.poll_interval_seconds", 1, errs)
}

// validateMinioConfig validates the image object store settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateMinioConfig(get configGetter, errs *[]string) {
	validateRequiredString(get, "settings.db.minio.bucket", errs)
	validateOptionalBool(get, "settings.db.minio.use_ssl", errs)
	validateOptionalIntMin(get, "settings.db.minio.url_expiry_seconds", 1, errs)

	raw := get("settings.db.minio.endpoint")
	if raw == nil {
		appendValidationError(errs, "settings.db.minio.endpoint is required")
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil || !isValidHost(value) {
		appendValidationError(errs, "settings.db.minio.endpoint must be a host[:port] without scheme")
	}
}

// validateRedisConfig validates redis-related startup configuration values.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateRedisConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.db.redis.db", 0, errs)
	validateOptionalIntMin(get, "settings.db.redis.url_cache_ttl_seconds", 1, errs)

	raw := get("settings.db.redis.addr")
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "settings.db.redis.addr must be a string")
		return
	}
	if strings.TrimSpace(value) != "" && !isValidHost(value) {
		appendValidationError(errs, "settings.db.redis.addr must be a host:port")
	}
}

// validateEditorConfig validates the post editor tunables.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateEditorConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.editor.placeholder_image", errs)
	validateOptionalBool(get, "settings.editor.preserve_manual_slug", errs)
	validateOptionalIntMin(get, "settings.editor.notify_dismiss_ms", 1, errs)
	validateOptionalIntMin(get, "settings.editor.preview_max_width", 1, errs)
	validateOptionalInt64Min(get, "settings.editor.max_image_bytes", 1, errs)
}

// validateWebConfig validates the http server settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateWebConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.web.session_idle_timeout_seconds", 0, errs)

	raw := get("settings.web.allowed_origins")
	if raw == nil {
		return
	}

	items, ok := raw.([]any)
	if !ok {
		if typed, isStrings := raw.([]string); isStrings {
			for _, v := range typed {
				items = append(items, v)
			}
		} else {
			appendValidationError(errs, "settings.web.allowed_origins must be a list of domains")
			return
		}
	}

	for i, item := range items {
		value, parseErr := parseStrictString(item)
		if parseErr != nil || !isValidHost(value) {
			appendValidationError(errs, "settings.web.allowed_origins[%d] must be a domain without scheme", i)
		}
	}
}

// validateRequiredString validates that a key is configured as a non-empty string.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateRequiredString(get configGetter, key string, errs *[]string) {
	if get(key) == nil {
		appendValidationError(errs, "%s is required", key)
		return
	}

	validateOptionalStringNonEmpty(get, key, errs)
}

// validateRequiredMap validates that a key holds a map whose listed fields are non-empty strings.
// It accepts a getter, the key, required field names, and an error collector pointer.
func validateRequiredMap(get configGetter, key string, fields []string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		appendValidationError(errs, "%s is required", key)
		return
	}

	source, ok := raw.(map[string]any)
	if !ok {
		appendValidationError(errs, "%s must be a map", key)
		return
	}

	for _, field := range fields {
		validateRequiredStringInMap(errs, source, key+"."+field)
	}
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalInt64Min validates an optionally configured int64 key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalInt64Min(get configGetter, key string, min int64, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt64(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// validateRequiredStringInMap validates that a required map field is a non-empty string.
// It accepts an error collector pointer, a source map, and the field path label, and appends validation errors.
func validateRequiredStringInMap(errs *[]string, source map[string]any, fieldPath string) {
	parts := strings.Split(fieldPath, ".")
	key := parts[len(parts)-1]
	value, ok := source[key]
	if !ok {
		appendValidationError(errs, "%s is required", fieldPath)
		return
	}

	text, parseErr := parseStrictString(value)
	if parseErr != nil || strings.TrimSpace(text) == "" {
		appendValidationError(errs, "%s must be a non-empty string", fieldPath)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictInt64 parses a value as a strict int64.
// It accepts a raw value and returns the parsed int64 and an error when parsing fails.
func parseStrictInt64(value any) (int64, error) {
	parsed, err := parseStrictInt(value)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int64(parsed), nil
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// isValidHost validates a host string without scheme or path components.
// It accepts a host string and returns true when the host is syntactically acceptable.
func isValidHost(host string) bool {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "://") || strings.Contains(trimmed, "/") {
		return false
	}
	return true
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
