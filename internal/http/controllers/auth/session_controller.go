package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/socialauth/internal/http/dto/auth"
	"github.com/dropDatabas3/socialauth/internal/http/errors"
	"github.com/dropDatabas3/socialauth/internal/http/helpers"
	mw "github.com/dropDatabas3/socialauth/internal/http/middlewares"
)

// LogoutController handles POST /api/auth/logout. Runs behind RequireAuth.
type LogoutController struct {
	service Service
}

func (c *LogoutController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.service.Logout(r.Context(), mw.GetToken(r.Context()), r.Header.Get(headerPurchaseKey)); err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.Envelope{Message: "Successfully logged out", Data: []any{}})
}

// MeController handles GET /api/auth/me. Runs behind RequireAuth.
type MeController struct{}

func (c *MeController) Me(w http.ResponseWriter, r *http.Request) {
	acc := mw.GetAccount(r.Context())
	if acc == nil {
		errors.WriteError(w, errors.ErrTokenMissing)
		return
	}
	writeAccount(w, acc)
}
