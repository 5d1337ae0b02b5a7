package http

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing/internal/observability"
	"github.com/spec-kit/ticketing/internal/web"
	apperrors "github.com/spec-kit/ticketing/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, deps Dependencies) {
	app.Use(requestIDMiddleware())
	app.Use(observability.RequestLogger(deps.Logger, deps.Metrics))
	app.Use(errorPageMiddleware(deps.Renderer, deps.Logger, deps.Metrics, deps.ShowErrorDetail))
	if timeout := deps.RequestTimeout; timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

func requestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(observability.RequestIDKey)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(observability.RequestIDKey, id)
		c.Set(observability.RequestIDKey, id)
		return c.Next()
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorPageMiddleware turns handler errors and panics into an HTML error page.
// Internal errors only show their text when showDetail is set.
func errorPageMiddleware(renderer *web.Renderer, logger *zap.Logger, metrics *observability.Metrics, showDetail bool) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err == nil {
				return
			}

			status, title, message, detail := describeError(err)
			metrics.RecordError(c.Path(), c.Method(), strconv.Itoa(status))
			if status >= fiber.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("path", c.Path()),
					zap.Any("request_id", c.Locals(observability.RequestIDKey)),
					zap.Error(err))
			}
			if !showDetail {
				detail = ""
			}

			if renderErr := renderer.Render(c, status, "error", web.Page{
				Title:  title,
				Error:  message,
				Detail: detail,
			}); renderErr != nil {
				logger.Error("error page failed", zap.Error(renderErr))
				err = c.Status(status).SendString(message)
				return
			}
			err = nil
		}()
		return c.Next()
	}
}

func describeError(err error) (status int, title, message, detail string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return fiberErr.Code, "Page not found", "The page you requested does not exist.", ""
		case fiber.StatusMethodNotAllowed:
			return fiberErr.Code, "Method not allowed", "That action is not available here.", ""
		default:
			return fiberErr.Code, "Request failed", fiberErr.Message, ""
		}
	}

	domainErr := apperrors.ToDomainError(err)
	switch domainErr.HTTPStatus {
	case fiber.StatusForbidden:
		return domainErr.HTTPStatus, "Forbidden", domainErr.Message, ""
	case fiber.StatusNotFound:
		return domainErr.HTTPStatus, "Not found", domainErr.Message, ""
	case fiber.StatusUnauthorized:
		return domainErr.HTTPStatus, "Unauthorized", domainErr.Message, ""
	case fiber.StatusUnprocessableEntity:
		return domainErr.HTTPStatus, "Invalid request", domainErr.Message, ""
	}
	return fiber.StatusInternalServerError, "Something went wrong",
		"An unexpected error occurred. Please try again later.", err.Error()
}
