package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/tpa-claims/internal/application/service"
)

// ActorHeader carries the id of the acting back-office user
const ActorHeader = "X-User-ID"

const actorKey = "actor_id"

// actorMiddleware resolves ActorHeader to a known user. Requests without the
// header act anonymously (actor 0).
func actorMiddleware(registry service.RegistryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(ActorHeader))
		if raw == "" {
			c.Set(actorKey, int64(0))
			c.Next()
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondError(c, http.StatusBadRequest, "invalid "+ActorHeader+" header")
			return
		}

		if _, err := registry.GetUser(c.Request.Context(), id); err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				respondError(c, http.StatusUnauthorized, "unknown user")
				return
			}
			respondError(c, http.StatusInternalServerError, "internal server error")
			return
		}

		c.Set(actorKey, id)
		c.Next()
	}
}

func actorID(c *gin.Context) int64 {
	return c.GetInt64(actorKey)
}
