package auth

import (
	"net/http"

	"github.com/dropDatabas3/socialauth/internal/auth"
	dto "github.com/dropDatabas3/socialauth/internal/http/dto/auth"
	"github.com/dropDatabas3/socialauth/internal/http/errors"
	"github.com/dropDatabas3/socialauth/internal/http/helpers"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// SocialController handles POST /api/auth/social?provider=<name>.
type SocialController struct {
	service Service
}

func (c *SocialController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.SocialRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	provider := r.URL.Query().Get("provider")
	logger.From(r.Context()).Debug("social login",
		logger.Layer("controller"), logger.Provider(provider), logger.String("source", req.Source))

	res, err := c.service.LoginWithProvider(r.Context(), auth.SocialLogin{
		Provider:    provider,
		ID:          string(req.ID),
		Name:        req.Name,
		Email:       req.Email,
		Token:       req.Token,
		Source:      req.Source,
		UserImage:   req.UserImage,
		UserPicture: req.UserPicture,
		DeviceToken: req.DeviceToken,
		DeviceType:  req.DeviceType,
		ClientID:    r.Header.Get(headerClientID),
	})
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	msg := "Login Successfully"
	if res.IsNew {
		msg = "Signup Successfully"
	}
	writeToken(w, msg, res)
}
