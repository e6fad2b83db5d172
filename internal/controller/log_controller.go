package controller

import (
	"strings"

	"clinician-dashboard-be/internal/pkg/logger"
	"clinician-dashboard-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

const maxLogPage = 500

type ILogController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
}

// logController serves the system log and the isolated notification log.
type logController struct {
	system       logger.ILogger
	notification logger.ILogger
}

func NewLogController(system, notification logger.ILogger) ILogController {
	return &logController{
		system:       system,
		notification: notification,
	}
}

func (c *logController) RegisterRoutes(r fiber.Router) {
	r.Get("/logs", c.List)
}

func (c *logController) List(ctx *fiber.Ctx) error {
	source := c.system
	if ctx.Query("source") == "notification" {
		source = c.notification
	}

	limit := ctx.QueryInt("limit", 100)
	if limit <= 0 || limit > maxLogPage {
		limit = maxLogPage
	}
	offset := ctx.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	logs, err := source.GetLogs(strings.ToUpper(ctx.Query("level")), limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get logs", logs))
}
