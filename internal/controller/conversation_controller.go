package controller

import (
	"strconv"

	"clinician-dashboard-be/internal/dto"
	"clinician-dashboard-be/internal/pkg/serverutils"
	"clinician-dashboard-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	Regenerate(ctx *fiber.Ctx) error
	Clear(ctx *fiber.Ctx) error
	ShowDraft(ctx *fiber.Ctx) error
	SaveDraft(ctx *fiber.Ctx) error
	ShowAnalysis(ctx *fiber.Ctx) error
}

type conversationController struct {
	conversationService service.IConversationService
}

func NewConversationController(conversationService service.IConversationService) IConversationController {
	return &conversationController{
		conversationService: conversationService,
	}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conversations")
	h.Get(":key/messages", c.Show)
	h.Post(":key/messages", c.Send)
	h.Post(":key/messages/:index/regenerate", c.Regenerate)
	h.Delete(":key/messages", c.Clear)
	h.Get(":key/draft", c.ShowDraft)
	h.Put(":key/draft", c.SaveDraft)

	r.Get("/patients/:id/analysis", c.ShowAnalysis)
}

func (c *conversationController) Show(ctx *fiber.Ctx) error {
	res, err := c.conversationService.Messages(ctx.Context(), ctx.Params("key"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversation", res))
}

// Send appends the clinician's message. With ?wait=true the response carries
// the assistant reply, otherwise it returns 202 and the reply arrives over the socket.
func (c *conversationController) Send(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	wait := ctx.QueryBool("wait")
	res, err := c.conversationService.Send(ctx.UserContext(), ctx.Params("key"), &req, wait)
	if err != nil {
		return err
	}

	if !res.Complete {
		ctx.Status(fiber.StatusAccepted)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *conversationController) Regenerate(ctx *fiber.Ctx) error {
	index, err := strconv.Atoi(ctx.Params("index"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "index must be an integer")
	}

	wait := ctx.QueryBool("wait")
	res, err := c.conversationService.Regenerate(ctx.UserContext(), ctx.Params("key"), index, wait)
	if err != nil {
		return err
	}

	if !res.Complete {
		ctx.Status(fiber.StatusAccepted)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success regenerate message", res))
}

func (c *conversationController) Clear(ctx *fiber.Ctx) error {
	res, err := c.conversationService.ClearMessages(ctx.Context(), ctx.Params("key"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success clear conversation", res))
}

func (c *conversationController) ShowDraft(ctx *fiber.Ctx) error {
	res := c.conversationService.Draft(ctx.Context(), ctx.Params("key"))
	return ctx.JSON(serverutils.SuccessResponse("Success get draft", res))
}

func (c *conversationController) SaveDraft(ctx *fiber.Ctx) error {
	var req dto.DraftRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res := c.conversationService.SaveDraft(ctx.Context(), ctx.Params("key"), req.Text)
	return ctx.JSON(serverutils.SuccessResponse("Success save draft", res))
}

func (c *conversationController) ShowAnalysis(ctx *fiber.Ctx) error {
	res, err := c.conversationService.CachedAnalysis(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get analysis", res))
}
