package controller

import (
	"clinician-dashboard-be/internal/dto"
	"clinician-dashboard-be/internal/pkg/serverutils"
	"clinician-dashboard-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ITabController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Open(ctx *fiber.Ctx) error
	Activate(ctx *fiber.Ctx) error
	RequestClose(ctx *fiber.Ctx) error
	ConfirmClose(ctx *fiber.Ctx) error
	CancelClose(ctx *fiber.Ctx) error
	ObserveRoute(ctx *fiber.Ctx) error
}

type tabController struct {
	tabService service.ITabService
}

func NewTabController(tabService service.ITabService) ITabController {
	return &tabController{
		tabService: tabService,
	}
}

func (c *tabController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/tabs")
	h.Get("", c.Show)
	h.Post("", c.Open)
	h.Post("close/confirm", c.ConfirmClose)
	h.Post("close/cancel", c.CancelClose)
	h.Post("route", c.ObserveRoute)
	h.Post(":id/activate", c.Activate)
	h.Post(":id/close", c.RequestClose)
}

func (c *tabController) Show(ctx *fiber.Ctx) error {
	res := c.tabService.Snapshot(ctx.Context())
	return ctx.JSON(serverutils.SuccessResponse("Success get tabs", res))
}

func (c *tabController) Open(ctx *fiber.Ctx) error {
	var req dto.OpenTabRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.tabService.Open(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success open tab", res))
}

func (c *tabController) Activate(ctx *fiber.Ctx) error {
	res, err := c.tabService.Activate(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success switch tab", res))
}

func (c *tabController) RequestClose(ctx *fiber.Ctx) error {
	res, err := c.tabService.RequestClose(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Close requested", res))
}

func (c *tabController) ConfirmClose(ctx *fiber.Ctx) error {
	res, err := c.tabService.ConfirmClose(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success close tab", res))
}

func (c *tabController) CancelClose(ctx *fiber.Ctx) error {
	res, err := c.tabService.CancelClose(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Close cancelled", res))
}

func (c *tabController) ObserveRoute(ctx *fiber.Ctx) error {
	var req dto.ObserveRouteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.tabService.ObserveRoute(ctx.Context(), req.Path)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Route observed", res))
}
