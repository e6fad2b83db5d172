package controller

import (
	"clinician-dashboard-be/internal/pkg/serverutils"
	"clinician-dashboard-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type INotificationController interface {
	RegisterRoutes(r fiber.Router)
	Log(ctx *fiber.Ctx) error
	Toasts(ctx *fiber.Ctx) error
	DismissToast(ctx *fiber.Ctx) error
}

type notificationController struct {
	notificationService service.INotificationService
}

func NewNotificationController(notificationService service.INotificationService) INotificationController {
	return &notificationController{
		notificationService: notificationService,
	}
}

func (c *notificationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/notifications")
	h.Get("", c.Log)
	h.Get("toasts", c.Toasts)
	h.Delete("toasts/:id", c.DismissToast)
}

func (c *notificationController) Log(ctx *fiber.Ctx) error {
	res := c.notificationService.Log(ctx.Context())
	return ctx.JSON(serverutils.SuccessResponse("Success get notifications", res))
}

func (c *notificationController) Toasts(ctx *fiber.Ctx) error {
	res := c.notificationService.Toasts(ctx.Context())
	return ctx.JSON(serverutils.SuccessResponse("Success get toasts", res))
}

func (c *notificationController) DismissToast(ctx *fiber.Ctx) error {
	err := c.notificationService.DismissToast(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success dismiss toast", nil))
}
