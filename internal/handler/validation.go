package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// validationErrorResponse builds the 422 payload for a failed request
// validation: the first failure as the top-level message plus every failure
// grouped by wire field name.
func validationErrorResponse(err error) fiber.Map {
	fields := map[string][]string{}
	first := ""

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fieldPath(fe)
			msg := validationMessage(field, fe)
			if first == "" {
				first = msg
			}
			fields[field] = append(fields[field], msg)
		}
	}
	if first == "" {
		first = "invalid request"
	}
	return fiber.Map{"message": first, "errors": fields}
}

// invalidInputResponse shapes a domain rejection like a validation failure,
// attributed to the field that caused it.
func invalidInputResponse(field, msg string) fiber.Map {
	return fiber.Map{
		"message": msg,
		"errors":  map[string][]string{field: {msg}},
	}
}

// fieldPath strips the root struct name from the error namespace, leaving
// the wire path of the field ("qty", "data.status").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "uuid":
		return field + " must be a valid uuid"
	case "gte":
		return field + " must be at least " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "notblank":
		return field + " cannot be blank"
	case "max":
		return field + " exceeds maximum length of " + fe.Param()
	}
	return field + " is invalid"
}
