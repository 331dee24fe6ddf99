// Package auth holds the /api/auth controllers.
package auth

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/socialauth/internal/auth"
	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	dto "github.com/dropDatabas3/socialauth/internal/http/dto/auth"
	"github.com/dropDatabas3/socialauth/internal/http/helpers"
)

// Service is the orchestrator surface the controllers need.
type Service interface {
	LoginPassword(ctx context.Context, in auth.PasswordLogin) (*auth.Result, error)
	Signup(ctx context.Context, in auth.SignupRequest) (*auth.Result, error)
	LoginWithProvider(ctx context.Context, in auth.SocialLogin) (*auth.Result, error)
	Logout(ctx context.Context, token, purchaseKey string) error
}

// Controllers groups the auth controllers.
type Controllers struct {
	Login  *LoginController
	Signup *SignupController
	Social *SocialController
	Logout *LogoutController
	Me     *MeController
}

func NewControllers(s Service) *Controllers {
	return &Controllers{
		Login:  &LoginController{service: s},
		Signup: &SignupController{service: s},
		Social: &SocialController{service: s},
		Logout: &LogoutController{service: s},
		Me:     &MeController{},
	}
}

const (
	headerPurchaseKey = "purchase-key"
	headerClientID    = "clientId"
)

func writeToken(w http.ResponseWriter, msg string, res *auth.Result) {
	helpers.WriteJSON(w, http.StatusOK, dto.Envelope{
		Message: msg,
		Data: dto.TokenData{
			AccessToken: res.Token,
			TokenType:   "Bearer",
			User:        dto.NewUser(res.Account),
			IsSignup:    res.IsNew,
		},
	})
}

func writeAccount(w http.ResponseWriter, acc *repository.Account) {
	helpers.WriteJSON(w, http.StatusOK, dto.Envelope{Message: "Success", Data: dto.NewUser(acc)})
}
