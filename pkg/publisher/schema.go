package publisher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateConfig checks a target configuration against an adapter's JSON
// schema. Schema violations come back as validation errors so the dispatcher
// fails the target without consuming publish attempts.
func ValidateConfig(platform, schema string, config map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return NewValidationError(platform, fmt.Errorf("config schema validation failed: %w", err))
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return NewValidationError(platform, errors.New("invalid config: "+strings.Join(details, "; ")))
}
