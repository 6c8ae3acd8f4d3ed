package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/frypillows/review"
	"github.com/cppla/frypillows/utils"
)

// CommandHandler answers application commands.
type CommandHandler interface {
	Handle(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse
}

// ButtonHandler handles approve/deny presses.
type ButtonHandler interface {
	Handle(ctx context.Context, i *discordgo.Interaction) review.Reply
}

// InteractionController is the Discord interactions webhook. Requests reach it
// only after the signature middleware accepted them.
type InteractionController struct {
	commands CommandHandler
	buttons  ButtonHandler
	log      *zap.Logger
}

func NewInteractionController(commands CommandHandler, buttons ButtonHandler, log *zap.Logger) *InteractionController {
	return &InteractionController{commands: commands, buttons: buttons, log: log}
}

func (ic *InteractionController) Handle(ctx *gin.Context) {
	raw, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "unreadable body")
		return
	}
	var i discordgo.Interaction
	if err := json.Unmarshal(raw, &i); err != nil {
		ic.log.Warn("interaction decode", zap.Error(err))
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid interaction payload")
		return
	}

	switch i.Type {
	case discordgo.InteractionPing:
		ctx.JSON(http.StatusOK, discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})
	case discordgo.InteractionApplicationCommand:
		ctx.JSON(http.StatusOK, ic.commands.Handle(ctx.Request.Context(), &i))
	case discordgo.InteractionMessageComponent:
		ic.component(ctx, &i)
	default:
		ctx.JSON(http.StatusOK, ephemeralResponse("This interaction is not supported"))
	}
}

func (ic *InteractionController) component(ctx *gin.Context, i *discordgo.Interaction) {
	prefix, _, _ := strings.Cut(i.MessageComponentData().CustomID, ":")
	switch review.Action(prefix) {
	case review.ActionApprove, review.ActionDeny:
		reply := ic.buttons.Handle(ctx.Request.Context(), i)
		if reply.Accepted {
			ctx.Status(http.StatusAccepted)
			return
		}
		ctx.JSON(http.StatusOK, reply.Response())
	default:
		ctx.JSON(http.StatusOK, ephemeralResponse("Unknown button"))
	}
}
