package config

import (
	"encoding/json"
	"fmt"
	"strings"

	dserrors "github.com/systmms/secretsync/internal/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// environmentSchema is the JSON schema every environment configuration
// must satisfy before semantic validation runs.
const environmentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Environment secret configuration",
  "type": "object",
  "required": ["name", "applications"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "vault": {
      "type": "object",
      "required": ["address", "path"],
      "additionalProperties": false,
      "properties": {
        "address": {"type": "string", "format": "uri"},
        "mount": {"type": "string"},
        "path": {"type": "string", "minLength": 1},
        "tlsSkip": {"type": "boolean"}
      }
    },
    "awsSecretsManager": {
      "type": "object",
      "required": ["region", "prefix"],
      "additionalProperties": false,
      "properties": {
        "region": {"type": "string", "minLength": 1},
        "prefix": {"type": "string", "minLength": 1},
        "endpoint": {"type": "string"}
      }
    },
    "onepassword": {
      "type": "object",
      "required": ["connectUrl", "vaultTitle"],
      "additionalProperties": false,
      "properties": {
        "connectUrl": {"type": "string", "format": "uri"},
        "vaultTitle": {"type": "string", "minLength": 1}
      }
    },
    "applications": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "secrets"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "secrets": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["key"],
              "additionalProperties": false,
              "properties": {
                "key": {"type": "string", "minLength": 1},
                "description": {"type": "string"},
                "value": {"type": "string"},
                "copy": {
                  "type": "object",
                  "required": ["application", "key"],
                  "additionalProperties": false,
                  "properties": {
                    "application": {"type": "string"},
                    "key": {"type": "string"}
                  }
                },
                "generate": {
                  "type": "object",
                  "required": ["type"],
                  "additionalProperties": false,
                  "properties": {
                    "type": {"enum": ["password", "token", "bcrypt-hash", "sha256-hex"]},
                    "source": {"type": "string"}
                  }
                },
                "onepassword": {
                  "type": "object",
                  "additionalProperties": false,
                  "properties": {
                    "encoded": {"type": "boolean"}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// validateSchema checks the raw configuration document against the
// embedded JSON schema. Validating the document rather than the parsed
// struct means misspelled fields are caught instead of silently
// dropped. The YAML is round-tripped through JSON since the schema
// validator operates on JSON documents.
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return dserrors.ConfigError{
			Field:      "environment",
			Message:    "invalid YAML syntax in environment configuration",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	document, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(environmentSchema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return dserrors.ConfigError{
			Field:      "environment",
			Message:    "configuration does not match the expected structure:\n  - " + strings.Join(messages, "\n  - "),
			Suggestion: "Fix the listed fields in the environment YAML",
		}
	}
	return nil
}
