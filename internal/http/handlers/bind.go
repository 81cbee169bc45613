package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON binds and validates the request body, responding 400 with
// per-field details on failure.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", parseBindError(err, out))

		return false
	}

	return true
}

func parseBindError(err error, out interface{}) interface{} {
	// validator errors (struct bind tags)
	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   jsonFieldName(out, fieldError.StructField()),
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return gin.H{"fields": fields}
	}

	// in the event of bad json
	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	// in the event of a type mismatch
	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := strings.TrimSpace(unmatchedTypeError.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
				},
			},
		}
	}

	// final fallback if the error could not be deciphered
	return gin.H{"reason": err.Error()}
}

// jsonFieldName maps a struct field to its json tag name so clients see
// the names they actually sent.
func jsonFieldName(out interface{}, structField string) string {
	t := reflect.TypeOf(out)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return structField
	}

	sf, ok := t.FieldByName(structField)
	if !ok {
		return structField
	}

	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return structField
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
