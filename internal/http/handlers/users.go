package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jjinnspecs/authhub/internal/config"
	"github.com/jjinnspecs/authhub/internal/domain/user"
	"github.com/jjinnspecs/authhub/internal/http/middlewares"
)

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type ProfileCache interface {
	Get(ctx context.Context, userID string) (user.Profile, bool)
	Set(ctx context.Context, p user.Profile)
}

type UsersHandler struct {
	users UserGetter
	cache ProfileCache // nil when redis is not configured
	log   *slog.Logger
}

func NewUsersHandler(users UserGetter, cache ProfileCache, log *slog.Logger) *UsersHandler {
	return &UsersHandler{
		users: users,
		cache: cache,
		log:   log,
	}
}

// Me returns the authenticated user's record minus the password hash.
// A 404 here is legitimate: the record can disappear while a still-valid
// token is outstanding.
func (h *UsersHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnauthorized(ctx, "unauthorized", "Invalid or expired token")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	if h.cache != nil {
		if p, ok := h.cache.Get(cctx, userID); ok {
			ctx.JSON(http.StatusOK, p)
			return
		}
	}

	u, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.Error("user fetch failed", "user_id", userID, "err", err)
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	p := u.Profile()

	if h.cache != nil {
		h.cache.Set(cctx, p)
	}

	ctx.JSON(http.StatusOK, p)
}
