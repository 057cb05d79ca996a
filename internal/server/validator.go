package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const validatedBodyKey = "validatedBody"

var validate = validator.New()

// validationMiddleware parses and validates request bodies (and the perft
// query) and stores the result in c.Locals for the handler.
func validationMiddleware(c *fiber.Ctx) error {
	method := c.Method()
	path := strings.TrimSuffix(c.Path(), "/")

	var request any
	fromQuery := false

	switch {
	case method == fiber.MethodGet && strings.HasSuffix(path, "/perft"):
		request = &PerftQuery{}
		fromQuery = true
	case method != fiber.MethodPost:
		return c.Next()
	case strings.HasSuffix(path, "/games"):
		request = &CreateGameRequest{}
	case strings.HasSuffix(path, "/moves"):
		request = &MoveRequest{}
	case strings.HasSuffix(path, "/undo"):
		request = &UndoRequest{}
	case strings.HasSuffix(path, "/analysis"):
		request = &AnalyzeRequest{}
	default:
		return c.Next()
	}

	var err error
	switch {
	case fromQuery:
		err = c.QueryParser(request)
	case len(c.Body()) > 0:
		err = c.BodyParser(request)
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid request body",
			Code:    ErrInvalidRequest,
			Details: err.Error(),
		})
	}

	if err := validate.Struct(request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation failed",
			Code:    ErrInvalidRequest,
			Details: describeValidation(err),
		})
	}

	c.Locals(validatedBodyKey, request)
	return c.Next()
}

func describeValidation(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	var details strings.Builder
	for _, fe := range errs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch fe.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			if fe.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
			}
		case "max":
			if fe.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
			}
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return details.String()
}

// validated returns the request stored by validationMiddleware.
func validated[T any](c *fiber.Ctx) *T {
	if v, ok := c.Locals(validatedBodyKey).(*T); ok {
		return v
	}
	return new(T)
}
