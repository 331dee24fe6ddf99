package auth

import (
	"net/http"

	"github.com/dropDatabas3/socialauth/internal/auth"
	dto "github.com/dropDatabas3/socialauth/internal/http/dto/auth"
	"github.com/dropDatabas3/socialauth/internal/http/errors"
	"github.com/dropDatabas3/socialauth/internal/http/helpers"
	mw "github.com/dropDatabas3/socialauth/internal/http/middlewares"
)

// LoginController handles POST /api/auth/login.
type LoginController struct {
	service Service
}

func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.LoginPassword(r.Context(), auth.PasswordLogin{
		Email:    req.Email,
		Password: req.Password,
		IP:       mw.ClientIP(r),
	})
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	writeToken(w, "Login Successfully", res)
}

// SignupController handles POST /api/auth/signup.
type SignupController struct {
	service Service
}

func (c *SignupController) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.Signup(r.Context(), auth.SignupRequest{
		UserName:    req.UserName,
		Email:       req.Email,
		Password:    req.Password,
		PurchaseKey: r.Header.Get(headerPurchaseKey),
	})
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	writeToken(w, "Signup Successfully", res)
}
