package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = validator.New()

// ErrorHandler renders every error as {"status": "error", "code": ..., "message": ...}.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr, ok := apperrors.From(err)
		if !ok {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				appErr = apperrors.New(codeForStatus(fe.Code), fe.Message, fe.Code, nil)
			} else {
				appErr = apperrors.Internal("Server error", err)
			}
		}

		fields := []zap.Field{
			zap.String("code", appErr.Code),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
		}
		if appErr.Status >= fiber.StatusInternalServerError {
			log.Error("request failed", append(fields, zap.Error(err))...)
		} else {
			log.Debug("request rejected", append(fields, zap.String("message", appErr.Message))...)
		}

		return c.Status(appErr.Status).JSON(fiber.Map{
			"status":  "error",
			"code":    appErr.Code,
			"message": appErr.Message,
		})
	}
}

func codeForStatus(status int) string {
	switch {
	case status == fiber.StatusUnauthorized:
		return apperrors.CodeUnauthenticated
	case status == fiber.StatusForbidden:
		return apperrors.CodeAccessDenied
	case status == fiber.StatusNotFound:
		return apperrors.CodeNotFound
	case status == fiber.StatusConflict:
		return apperrors.CodeConflict
	case status >= fiber.StatusInternalServerError:
		return apperrors.CodeInternal
	default:
		return apperrors.CodeValidation
	}
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		if appErr, ok := apperrors.From(err); ok {
			return appErr
		}
		return apperrors.Validation("Cannot parse JSON")
	}
	return nil
}

func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Validation(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", field, map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return apperrors.Validation(strings.Join(msgs, "; "))
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name, what string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation(fmt.Sprintf("Invalid %s id.", what))
	}
	return uint(id), nil
}
