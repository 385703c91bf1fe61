package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
)

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed == 0 {
		return nil, errors.New("invalid_snowflake_id")
	}
	return &parsed, nil
}

// parseRequiredInt reads a mandatory integer query parameter; field names the
// parameter in the validation error.
func parseRequiredInt(value, field string) (int, error) {
	parsed, err := parseOptionalInt(value)
	if err != nil || parsed == nil {
		return 0, newValidationError(field, "invalid_"+field, field+" is required")
	}
	return *parsed, nil
}

func parseIDParam(value, field string) (snowflake.ID, error) {
	parsed, err := parseOptionalSnowflakeID(value)
	if err != nil {
		return 0, newValidationError(field, "invalid_"+field, "invalid "+field)
	}
	if parsed == nil {
		return 0, nil
	}
	return *parsed, nil
}
