package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/taskrelay/taskrelay/pkg/config"
	"github.com/taskrelay/taskrelay/pkg/errx"
	"github.com/taskrelay/taskrelay/pkg/logx"
	"github.com/taskrelay/taskrelay/pkg/taskq"
)

func main() {
	cfg := config.Load()

	logx.Info("Starting taskrelay...")

	container := NewContainer(cfg)
	defer container.Cleanup()

	app := fiber.New(fiber.Config{
		AppName:               "taskrelay",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Get("/health", healthHandler(container))

	api := app.Group("/api/v1")
	api.Post("/jobs", enqueueHandler(container))
	api.Get("/jobs/:id/status", statusHandler(container))
	api.Get("/jobs/:id/meta", metaHandler(container))
	api.Get("/jobs/:id/result", resultHandler(container))
	api.Delete("/jobs/:id", cancelHandler(container))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if container.Worker != nil {
		go func() {
			if err := container.Worker.Start(ctx); err != nil {
				logx.WithError(err).Error("Embedded worker stopped")
			}
		}()
		logx.Infof("Embedded worker started on queues %v", cfg.Taskq.Queues)
	}

	go func() {
		<-ctx.Done()
		logx.Info("Shutting down HTTP server...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logx.Infof("Listening on :%d (backend: %s)", cfg.Server.Port, cfg.Taskq.Backend)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		logx.Fatalf("Server stopped: %v", err)
	}
}

// globalErrorHandler renders every error through the single errx shape.
func globalErrorHandler(c *fiber.Ctx, err error) error {
	var e *errx.Error
	if errx.As(err, &e) {
		return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	return c.Status(fiber.StatusInternalServerError).
		JSON(errx.New(err.Error(), errx.TypeInternal).ToHTTPResponse())
}

func healthHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "taskrelay",
			"backend": container.Config.Taskq.Backend,
		}

		status := fiber.StatusOK
		if err := container.Backend.Ping(c.Context()); err != nil {
			health["status"] = "degraded"
			health["backend_error"] = err.Error()
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(health)
	}
}

type enqueueRequest struct {
	FuncRef        string         `json:"func_ref"`
	Args           []any          `json:"args"`
	Kwargs         map[string]any `json:"kwargs"`
	Queue          string         `json:"queue"`
	TimeoutSeconds int            `json:"timeout_seconds"`
}

func enqueueHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req enqueueRequest
		if err := c.BodyParser(&req); err != nil {
			return errx.Wrap(err, "invalid request body", errx.TypeValidation)
		}

		var opts []taskq.EnqueueOption
		if req.Queue != "" {
			opts = append(opts, taskq.OnQueue(req.Queue))
		}
		if req.TimeoutSeconds > 0 {
			opts = append(opts, taskq.WithTimeout(time.Duration(req.TimeoutSeconds)*time.Second))
		}

		id, err := container.Client.Enqueue(c.Context(), req.FuncRef, req.Args, req.Kwargs, opts...)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": id})
	}
}

func statusHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, err := container.Client.Status(c.Context(), taskq.JobID(c.Params("id")))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": status})
	}
}

func metaHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		meta, err := container.Client.Meta(c.Context(), taskq.JobID(c.Params("id")))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"meta": meta})
	}
}

func resultHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := container.Client.Result(c.Context(), taskq.JobID(c.Params("id")))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"result": result})
	}
}

func cancelHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := container.Client.Cancel(c.Context(), taskq.JobID(c.Params("id"))); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
