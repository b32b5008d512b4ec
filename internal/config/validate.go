package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their config keys instead of Go names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return err
	}

	for name, pattern := range map[string]string{
		"parser.name_pattern":        cfg.Parser.NamePattern,
		"parser.description_pattern": cfg.Parser.DescriptionPattern,
		"parser.price_pattern":       cfg.Parser.PricePattern,
		"parser.image_pattern":       cfg.Parser.ImagePattern,
	} {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%s is not a valid regex: %w", name, err)
		}
	}

	for _, t := range cfg.Storage.Types {
		switch t {
		case "mongo":
			if cfg.Storage.MongoURI == "" {
				return fmt.Errorf("storage.mongo_uri is required for the mongo sink")
			}
			if cfg.Storage.MongoDatabase == "" || cfg.Storage.MongoCollection == "" {
				return fmt.Errorf("storage.mongo_database and storage.mongo_collection are required for the mongo sink")
			}
		case "postgres":
			if cfg.Storage.PostgresDSN == "" {
				return fmt.Errorf("storage.postgres_dsn is required for the postgres sink")
			}
			if !validIdentifier.MatchString(cfg.Storage.PostgresTable) {
				return fmt.Errorf("storage.postgres_table %q is not a valid identifier", cfg.Storage.PostgresTable)
			}
		}
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// fieldPath turns "Config.engine.concurrency" into "engine.concurrency".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
