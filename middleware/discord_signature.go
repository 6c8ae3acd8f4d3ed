package middleware

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"

	"github.com/cppla/frypillows/utils"
)

// ParsePublicKey decodes the hex application public key shown in the developer portal.
func ParsePublicKey(hexKey string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode discord public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("discord public key: want %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// DiscordSignature rejects interaction webhooks not signed by the application key.
// The request body is left readable for the handler.
func DiscordSignature(key ed25519.PublicKey) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !discordgo.VerifyInteraction(ctx.Request, key) {
			utils.Sugar.Warnf("interaction signature rejected ip=%s", ctx.ClientIP())
			utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid request signature")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
