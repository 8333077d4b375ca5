package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// durationPattern matches strings accepted by time.ParseDuration. Bare numbers
// are rejected since viper would decode them as nanoseconds.
const durationPattern = `^-?([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// Schema is the JSON schema of the config file
var Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "definitions": {
    "duration": {"type": "string", "pattern": "` + durationPattern + `"}
  },
  "properties": {
    "gateway": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "api_url": {"type": "string", "minLength": 1},
        "token": {"type": "string"},
        "timeout": {"$ref": "#/definitions/duration"},
        "rate_limit": {"type": "number", "minimum": 0},
        "burst": {"type": "integer", "minimum": 0},
        "min_version": {"type": "string"}
      }
    },
    "agent": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "query": {"type": "string"},
        "tool": {"type": "string"},
        "tool_params": {"type": "object"},
        "summary": {"type": "string"},
        "pacing_interval": {"$ref": "#/definitions/duration"},
        "error_backoff": {"$ref": "#/definitions/duration"},
        "schedule": {"type": "string"},
        "cycle_timeout": {"$ref": "#/definitions/duration"}
      }
    },
    "checkpoint": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "interval": {"$ref": "#/definitions/duration"},
        "record_on": {"type": "string", "enum": ["", "success", "attempt"]}
      }
    },
    "session": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "path": {"type": "string"},
        "remote_create": {"type": "boolean"},
        "subscribed_services": {"type": "array", "items": {"type": "string"}}
      }
    },
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"type": "string", "enum": ["", "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"]},
        "file": {"type": "string"},
        "pretty": {"type": "boolean"},
        "max_size": {"type": "integer", "minimum": 0},
        "max_age": {"type": "integer", "minimum": 0},
        "compress": {"type": "boolean"},
        "redaction": {"type": "boolean"}
      }
    },
    "metrics": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "address": {"type": "string"}
      }
    },
    "tracing": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "endpoint": {"type": "string"},
        "insecure": {"type": "boolean"},
        "sample_ratio": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "data_dir": {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// ValidateSchema checks a decoded config document against Schema
func ValidateSchema(doc map[string]interface{}) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate config schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("config does not match schema: %s", strings.Join(problems, "; "))
}

// ValidateFile reads a YAML config file and checks it against Schema
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	doc := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return ValidateSchema(doc)
}
