package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/conduit/internal/service"
)

// UserHandler serves registration, login and the current user's account.
//
//	POST /api/users        register
//	POST /api/users/login  login
//	GET  /api/user         current user (auth)
//	PUT  /api/user         update       (auth)
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type userBody struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

type userResponse struct {
	User userBody `json:"user"`
}

func newUserResponse(res *service.AuthResult) userResponse {
	return userResponse{User: userBody{
		Email:    res.User.Email,
		Token:    res.Token,
		Username: res.User.Username,
		Bio:      res.User.Bio,
		Image:    res.User.Image,
	}}
}

// HandleRegister expects {"user": {"username", "email", "password"}}.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := decodeJSON(w, r, h.logger, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.users.Register(r.Context(), req.User.Username, req.User.Email, req.User.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, newUserResponse(res))
}

// HandleLogin expects {"user": {"email", "password"}}.
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := decodeJSON(w, r, h.logger, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.users.Login(r.Context(), req.User.Email, req.User.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newUserResponse(res))
}

func (h *UserHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	res, err := h.users.Current(r.Context(), viewer(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newUserResponse(res))
}

// HandleUpdate changes only the fields present in the body.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User struct {
			Email    *string `json:"email"`
			Password *string `json:"password"`
			Bio      *string `json:"bio"`
			Image    *string `json:"image"`
		} `json:"user"`
	}
	if err := decodeJSON(w, r, h.logger, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.users.Update(r.Context(), viewer(r), service.UserUpdate{
		Email:    req.User.Email,
		Password: req.User.Password,
		Bio:      req.User.Bio,
		Image:    req.User.Image,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newUserResponse(res))
}
