package web

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"porschevents/internal/model"
	"porschevents/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// sessionResponse is the auth state plus the avatar initials of the
// signed-in user.
type sessionResponse struct {
	store.AuthState
	Initials string `json:"initials,omitempty"`
}

func (s *Server) sessionView() sessionResponse {
	st := s.auth.State()
	out := sessionResponse{AuthState: st}
	if st.User != nil {
		out.Initials = st.User.Initials()
	}
	return out
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidation(w, describeValidation(err))
		return
	}
	if err := s.auth.Login(r.Context(), req.Email, req.Password); err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView())
}

// handleRegister validates the form before handing it to the store:
// required fields, email shape and the password policy.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in store.RegisterInput
	if err := decodeBody(w, r, &in); err != nil {
		writeValidation(w, err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		writeValidation(w, describeValidation(err))
		return
	}
	if !model.ValidEmail(in.Email) {
		writeValidation(w, "Please enter a valid email address")
		return
	}
	if problems := model.PasswordProblems(in.Password); len(problems) > 0 {
		writeValidation(w, strings.Join(problems, "; "))
		return
	}

	if err := s.auth.Register(r.Context(), in); err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, s.sessionView())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context())
	writeJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch model.UserPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeValidation(w, err.Error())
		return
	}
	if patch.Email != nil && !model.ValidEmail(*patch.Email) {
		writeValidation(w, "Please enter a valid email address")
		return
	}
	if !s.auth.UpdateUser(r.Context(), patch) {
		writeFailure(w, store.ErrInvalidCredentials, &store.Failure{
			Kind:    store.KindInvalidCredentials,
			Message: "Not signed in",
		})
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleClearAuthError(w http.ResponseWriter, _ *http.Request) {
	s.auth.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

func writeValidation(w http.ResponseWriter, msg string) {
	writeFailure(w, store.ErrValidationFailed, &store.Failure{Kind: store.KindValidationFailed, Message: msg})
}

// describeValidation renders validator errors as one message.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
