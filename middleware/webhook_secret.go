package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// WebhookSecret gates the unauthenticated inbound-email webhook with a shared
// secret header. When WEBHOOK_SECRET is unset the gate is open; the resolver
// itself never trusts the payload for authorization either way.
func WebhookSecret() gin.HandlerFunc {
	secret := os.Getenv("WEBHOOK_SECRET")
	if secret == "" {
		log.Println("WEBHOOK_SECRET not set; inbound email webhook is ungated")
	}
	return func(c *gin.Context) {
		if secret != "" {
			supplied := c.GetHeader("X-Webhook-Secret")
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) != 1 {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
