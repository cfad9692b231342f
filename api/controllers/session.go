package controllers

import (
	"net/http"
	"time"

	"github.com/yourflorist/storefront/api/responses"
	"github.com/yourflorist/storefront/pkg/config"
	pkgerrors "github.com/yourflorist/storefront/pkg/errors"
	"github.com/yourflorist/storefront/pkg/logger"
	"github.com/yourflorist/storefront/pkg/session"
)

type sessionResponse struct {
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// CreateSession mints a fresh shopper session token. The SPA calls this
// once on first load and sends the token with every later request.
func CreateSession(cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		token, err := session.Mint(cfg, now, session.NewSessionID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting session token"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			SessionToken: token,
			ExpiresAt:    now.Add(cfg.TTL()),
		})
	}
}
