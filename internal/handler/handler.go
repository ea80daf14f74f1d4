package handler

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/securecall/internal/config"
	"github.com/tuncerburak97/securecall/internal/metrics"
	"github.com/tuncerburak97/securecall/internal/middleware"
	"github.com/tuncerburak97/securecall/internal/model"
	"github.com/tuncerburak97/securecall/internal/service"
)

const downloadName = "secure_calls_log.json"

//go:embed index.html
var indexTemplate string

type Handler struct {
	svc     *service.SecureCallService
	metrics *metrics.MetricsCollector
	logger  *zerolog.Logger
	port    int
	index   string
}

func NewHandler(svc *service.SecureCallService, m *metrics.MetricsCollector, logger *zerolog.Logger, port int) *Handler {
	index := strings.NewReplacer(
		"{{rid}}", uuid.New().String()[:8],
		"{{port}}", strconv.Itoa(port),
	).Replace(indexTemplate)

	return &Handler{
		svc:     svc,
		metrics: m,
		logger:  logger,
		port:    port,
		index:   index,
	}
}

// NewApp builds the Fiber application with middleware and every route registered.
func NewApp(cfg config.ServerConfig, h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		BodyLimit:             cfg.BodyLimit,
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.Metrics(h.metrics, h.logger))

	h.Register(app)
	return app
}

func (h *Handler) Register(app *fiber.App) {
	app.Get("/", h.Index)
	app.Get("/health", h.Health)
	app.Post("/api/secure", h.SecureCall)
	app.Get("/logs", h.RecentLogs)
	app.Get("/logs/full", h.FullLog)
	app.Post("/frontend-log", h.FrontendLog)
	app.Get("/api/echo", h.Echo)
	app.Post("/api/echo", h.Echo)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/metrics/json", h.MetricsJSON)
}

func (h *Handler) Index(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(h.index)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.SendString(fmt.Sprintf("OK - port %d", h.port))
}

func (h *Handler) SecureCall(c *fiber.Ctx) error {
	resp := h.svc.HandleSecureCall(c.UserContext(), c.GetReqHeaders(), c.Body(), c.IP())
	return c.Status(resp.Status).JSON(resp.Body)
}

func (h *Handler) FrontendLog(c *fiber.Ctx) error {
	resp := h.svc.LogFrontendEvent(c.UserContext(), c.GetReqHeaders(), c.Body(), c.IP())
	return c.Status(resp.Status).JSON(resp.Body)
}

// RecentLogs serves the newest entries, oldest first. ?limit= overrides the
// configured window.
func (h *Handler) RecentLogs(c *fiber.Ctx) error {
	return c.JSON(h.svc.RecentLogs(c.QueryInt("limit", 0)))
}

func (h *Handler) FullLog(c *fiber.Ctx) error {
	data, err := h.svc.FullLog(c.UserContext())
	if errors.Is(err, model.ErrLogNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(service.ErrorResponse{Error: "No log file found"})
	}
	if err != nil {
		return err
	}

	if c.Query("download") == "1" {
		c.Attachment(downloadName)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	}
	return c.Send(data)
}

type echoResponse struct {
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Args    map[string]string `json:"args"`
	Body    interface{}       `json:"body"`
}

func (h *Handler) Echo(c *fiber.Ctx) error {
	var body interface{}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		body = nil
	}

	return c.JSON(echoResponse{
		Method:  c.Method(),
		Headers: convertHeaders(c.GetReqHeaders()),
		Args:    c.Queries(),
		Body:    body,
	})
}

func (h *Handler) MetricsJSON(c *fiber.Ctx) error {
	data, err := h.metrics.GetMetricsJSON()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	} else {
		h.logger.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	}
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		msg = "Internal server error"
	}
	return c.Status(code).JSON(service.ErrorResponse{Error: msg})
}

// convertHeaders converts map[string][]string to map[string]string
func convertHeaders(headers map[string][]string) map[string]string {
	result := make(map[string]string)
	for k, v := range headers {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
