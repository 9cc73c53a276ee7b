// Package validate implements the §9 design note's API-boundary check:
// dynamic JSON fields (match_conditions, auto_approve_conditions,
// render_config) stay opaque []byte at rest, but anything an HTTP caller
// submits is validated against a generated schema before it's accepted, so a
// malformed document fails fast at the handler instead of surfacing later as
// a silent no-match inside the engine.
package validate

import (
	"encoding/json"

	jsonschema "github.com/google/jsonschema-go/jsonschema"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types"
)

var (
	matchConditionsSchema       = mustResolve[types.MatchConditions]()
	autoApproveConditionsSchema = mustResolve[types.AutoApproveConditions]()
	renderConfigSchema          = mustResolve[types.RenderConfig]()
)

func mustResolve[T any]() *jsonschema.Resolved {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(err)
	}
	return resolved
}

func validateAgainst(resolved *jsonschema.Resolved, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return apperrors.NewBadRequestError("invalid json: " + err.Error())
	}
	if err := resolved.Validate(doc); err != nil {
		return apperrors.NewBadRequestError("schema validation failed: " + err.Error())
	}
	return nil
}

// MatchConditions validates a raw match_conditions document (§3, C6).
func MatchConditions(raw []byte) error { return validateAgainst(matchConditionsSchema, raw) }

// AutoApproveConditions validates a raw auto_approve_conditions document (§3, C6).
func AutoApproveConditions(raw []byte) error {
	return validateAgainst(autoApproveConditionsSchema, raw)
}

// RenderConfig validates a raw render_config document (§3, C7/C8).
func RenderConfig(raw []byte) error { return validateAgainst(renderConfigSchema, raw) }
