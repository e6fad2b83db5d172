package controller

import (
	"clinician-dashboard-be/internal/dto"
	"clinician-dashboard-be/internal/pkg/serverutils"
	"clinician-dashboard-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Start(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
}

func NewSessionController(sessionService service.ISessionService) ISessionController {
	return &sessionController{
		sessionService: sessionService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session")
	h.Get("", c.Show)
	h.Post("start", c.Start)
	h.Post("end", c.End)
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	res := c.sessionService.State(ctx.Context())
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *sessionController) Start(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.sessionService.Start(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success start session", res))
}

func (c *sessionController) End(ctx *fiber.Ctx) error {
	res, err := c.sessionService.End(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success end session", res))
}
