package api

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/novostroy/novostroy-api/internal/auth"
	"github.com/novostroy/novostroy-api/internal/models"
	"github.com/novostroy/novostroy-api/internal/validation"
)

const tokenType = "bearer"

var phoneRegex = regexp.MustCompile(`^[\+]?[0-9\s\-\(\)]{10,20}$`)

func (api *Api) expiresIn() int {
	return int(api.auth.Tokens().TTL().Seconds())
}

func (api *Api) setAuthCookie(w http.ResponseWriter, r *http.Request, token *auth.Token) {
	http.SetCookie(w, authCookie(r, token.Value, api.auth.Tokens().TTL()))
}

func (api *Api) writeAuthenticated(w http.ResponseWriter, r *http.Request, status int, user *models.User, token *auth.Token, msg string) {
	api.setAuthCookie(w, r, token)
	writeJSON(w, status, authResponse{
		Success:   true,
		User:      user,
		Token:     token.Value,
		TokenType: tokenType,
		ExpiresIn: api.expiresIn(),
		Message:   msg,
	})
}

func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidData, bodyErrors())
		return
	}

	email, password := in.get("email"), in.get("password")
	api.log.Info("login attempt", "email", email, "ip", api.clientIP(r))

	v := validation.New()
	in.requireStrings(v, "email", "password")
	if v.Required("email", email) {
		v.Email("email", email)
	}
	v.Required("password", password)
	if !v.Valid() {
		api.log.Warn("login validation failed", "email", email, "errors", v.Errors())
		writeError(w, http.StatusUnprocessableEntity, msgInvalidData, v.Errors())
		return
	}

	user, token, err := api.auth.Login(r.Context(), email, password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.log.Warn("login failed: invalid credentials", "email", email, "ip", api.clientIP(r))
		writeError(w, http.StatusUnprocessableEntity, msgInvalidCredentials,
			validation.Errors{"email": {msgInvalidCredentials}})
		return
	case user != nil:
		api.log.Error("failed to create token on login", "email", email, "error", err)
		writeError(w, http.StatusInternalServerError, msgTokenCreateFailed, general(msgTokenCreateRetry))
		return
	default:
		api.log.Error("unexpected login error", "email", email, "error", err)
		writeError(w, http.StatusInternalServerError, msgLoginFailed, general(msgUnexpected))
		return
	}

	api.log.Info("login successful", "user_id", user.ID, "email", user.Email)
	api.writeAuthenticated(w, r, http.StatusOK, user, token, msgLoginSuccess)
}

func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidData, bodyErrors())
		return
	}

	v := validation.New()
	in.requireStrings(v, "name", "email", "password", "password_confirmation", "phone")
	name, email, password, phone := in.get("name"), in.get("email"), in.get("password"), in.get("phone")

	if v.Required("name", name) {
		v.Max("name", name, 255)
	}
	if v.Required("email", email) {
		v.Email("email", email)
		v.Max("email", email, 255)
		if !v.Has("email") {
			taken, err := api.auth.EmailTaken(r.Context(), email)
			if err != nil {
				api.log.Error("unexpected registration error", "email", email, "error", err)
				writeError(w, http.StatusInternalServerError, msgRegisterFailed, general(msgUnexpected))
				return
			}
			v.Unique("email", taken)
		}
	}
	if v.Required("password", password) {
		v.Min("password", password, 8)
		v.MaxBytes("password", password, 72)
		v.Confirmed("password", password, in.get("password_confirmation"))
	}
	v.Matches("phone", phone, phoneRegex)
	if !v.Valid() {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidData, v.Errors())
		return
	}

	api.log.Info("registration attempt", "email", email, "ip", api.clientIP(r))

	user, token, err := api.auth.Register(r.Context(), auth.RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
		Phone:    in.optional("phone"),
	})
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrEmailTaken):
		// lost a race with a concurrent registration
		v.Unique("email", true)
		writeError(w, http.StatusUnprocessableEntity, msgInvalidData, v.Errors())
		return
	case user != nil:
		api.log.Error("user registered but token not created", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, msgRegisteredNoToken, general(msgTryLogin))
		return
	default:
		api.log.Error("unexpected registration error", "email", email, "error", err)
		writeError(w, http.StatusInternalServerError, msgRegisterFailed, general(msgUnexpected))
		return
	}

	api.log.Info("registration successful", "user_id", user.ID, "email", user.Email)
	api.writeAuthenticated(w, r, http.StatusCreated, user, token, msgRegisterSuccess)
}

func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		api.unauthenticated(w)
		return
	}
	api.log.Info("logout", "user_id", user.ID)

	if err := api.auth.Logout(r.Context(), tokenFromContext(r.Context())); err != nil {
		api.log.Error("failed to invalidate token on logout", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, msgLogoutFailed, general(msgLogoutError))
		return
	}

	http.SetCookie(w, expiredAuthCookie(r))
	writeMessage(w, http.StatusOK, msgLogoutSuccess)
}

func (api *Api) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	token, err := api.auth.Refresh(r.Context(), tokenFromContext(r.Context()))
	if err != nil {
		if auth.IsTokenError(err) {
			api.log.Warn("token refresh rejected", "error", err)
		} else {
			api.log.Error("token refresh failed", "error", err)
		}
		writeError(w, http.StatusUnauthorized, msgRefreshFailed, general(msgLoginAgain))
		return
	}

	api.setAuthCookie(w, r, token)
	writeJSON(w, http.StatusOK, refreshResponse{
		Success:   true,
		Token:     token.Value,
		TokenType: tokenType,
		ExpiresIn: api.expiresIn(),
		Message:   msgRefreshSuccess,
	})
}

func (api *Api) UserHandler(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		api.unauthenticated(w)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// ForgotPasswordHandler answers the same way whether or not the account exists.
// Reset tokens are issued out of band by the reset-token command.
func (api *Api) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidEmail, bodyErrors())
		return
	}

	v := validation.New()
	in.requireStrings(v, "email")
	email := in.get("email")
	if v.Required("email", email) {
		v.Email("email", email)
	}
	if !v.Valid() {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidEmail, v.Errors())
		return
	}

	api.log.Info("password reset requested", "ip", api.clientIP(r))
	writeMessage(w, http.StatusOK, msgForgotPassword)
}

func (api *Api) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidData, bodyErrors())
		return
	}

	v := validation.New()
	in.requireStrings(v, "token", "email", "password", "password_confirmation")
	token, email, password := in.get("token"), in.get("email"), in.get("password")
	v.Required("token", token)
	if v.Required("email", email) {
		v.Email("email", email)
	}
	if v.Required("password", password) {
		v.Min("password", password, 8)
		v.MaxBytes("password", password, 72)
		v.Confirmed("password", password, in.get("password_confirmation"))
	}
	if !v.Valid() {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidData, v.Errors())
		return
	}

	err = api.auth.ResetPassword(r.Context(), email, token, password)
	switch {
	case err == nil:
		api.log.Info("password reset", "email", auth.NormalizeEmail(email))
		writeMessage(w, http.StatusOK, msgPasswordChanged)
	case errors.Is(err, auth.ErrInvalidResetToken):
		writeError(w, http.StatusUnprocessableEntity, msgInvalidToken,
			validation.Errors{"token": {msgInvalidOrExpired}})
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, msgUserNotFound,
			validation.Errors{"email": {msgUserNotFound}})
	default:
		api.log.Error("password reset failed", "email", email, "error", err)
		writeError(w, http.StatusInternalServerError, msgResetFailed, general(msgUnexpected))
	}
}
