package handlers

import (
	"errors"
	"net/http"
	"strings"

	"foodshare-service/internal/api/dto"
	"foodshare-service/internal/domain"
	"foodshare-service/internal/platform/auth"
	"foodshare-service/internal/ports"
)

// UserHandler exposes registration, session, and account endpoints.
type UserHandler struct {
	Users    ports.UserStore
	Sessions *auth.SessionManager
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req dto.RegisterRequest
	if !readJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		WriteError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	user := &domain.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		Email:        req.Email,
		Address:      req.Address,
		Zip:          req.Zip,
	}

	switch strings.ToLower(req.UserType) {
	case "client":
		client := &domain.Client{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			CellPhone: req.CellPhone,
			Paying:    req.Paying,
		}
		err = h.Users.CreateClientUser(r.Context(), user, client)
	case "business":
		business := &domain.Business{
			Name:         req.Name,
			WorkPhone:    req.WorkPhone,
			Instructions: req.Instructions,
		}
		err = h.Users.CreateBusinessUser(r.Context(), user, business)
	default:
		WriteError(w, r, http.StatusBadRequest, "invalid user type")
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Successfully created new user"})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var cred dto.Credentials
	if !readJSON(w, r, &cred) {
		return
	}

	token, err := h.Sessions.Login(r.Context(), cred.Username, cred.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.LoginResponse{SessionToken: token})
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	sid, ok := SessionIDFrom(r.Context())
	if !ok {
		WriteError(w, r, http.StatusUnauthorized, "session is invalid or expired")
		return
	}

	if err := h.Sessions.Logout(r.Context(), sid); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Log out was a success"})
}

// checkPassword re-authenticates a password-gated operation and returns
// the user row.
func (h *UserHandler) checkPassword(w http.ResponseWriter, r *http.Request, cred dto.Credentials) (*domain.User, bool) {
	user, err := h.Users.GetUserByUsername(r.Context(), cred.Username)
	if err != nil {
		writeDomainError(w, r, domain.ErrBadCredentials)
		return nil, false
	}
	if !auth.CheckPassword(user.PasswordHash, cred.Password) {
		writeDomainError(w, r, domain.ErrBadCredentials)
		return nil, false
	}
	return user, true
}

func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var cred dto.Credentials
	if !readJSON(w, r, &cred) {
		return
	}

	user, ok := h.checkPassword(w, r, cred)
	if !ok {
		return
	}

	if err := h.Sessions.LogoutAll(r.Context(), user.UID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Successfully logged out of all sessions"})
}

func (h *UserHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	subject, ok := SubjectFrom(r.Context())
	if !ok {
		WriteError(w, r, http.StatusUnauthorized, "session is invalid or expired")
		return
	}

	user, err := h.Users.GetUser(r.Context(), subject.UID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	info := dto.UserInfoResponse{
		Username: user.Username,
		Email:    user.Email,
		Address:  user.Address,
		Zip:      user.Zip,
	}

	switch subject.Role {
	case domain.RoleClient:
		client, err := h.Users.GetClientByUID(r.Context(), subject.UID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		info.UserType = string(domain.RoleClient)
		info.CID = client.CID
		info.FirstName = client.FirstName
		info.LastName = client.LastName
		info.CellPhone = client.CellPhone
	case domain.RoleBusiness:
		business, err := h.Users.GetBusinessByUID(r.Context(), subject.UID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		info.UserType = string(domain.RoleBusiness)
		info.BID = business.BID
		info.Name = business.Name
		info.WorkPhone = business.WorkPhone
		info.Instructions = business.Instructions
	default:
		writeDomainError(w, r, domain.ErrWrongUserType)
		return
	}

	writeJSON(w, r, http.StatusOK, info)
}

func (h *UserHandler) GetUserType(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	subject, ok := SubjectFrom(r.Context())
	if !ok {
		WriteError(w, r, http.StatusUnauthorized, "session is invalid or expired")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.UserTypeResponse{UserType: string(subject.Role)})
}

func (h *UserHandler) SetInfo(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req dto.SetInfoRequest
	if !readJSON(w, r, &req) {
		return
	}

	user, ok := h.checkPassword(w, r, req.Credentials)
	if !ok {
		return
	}

	newUsername := strings.TrimSpace(req.NewUsername)
	if newUsername == "" {
		WriteError(w, r, http.StatusBadRequest, "new username is required")
		return
	}
	if existing, err := h.Users.GetUserByUsername(r.Context(), newUsername); err == nil {
		if existing.UID != user.UID {
			writeDomainError(w, r, domain.ErrUsernameTaken)
			return
		}
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		writeDomainError(w, r, err)
		return
	}

	subject, err := h.Users.ResolveSubject(r.Context(), user.UID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	user.Username = newUsername
	user.Email = req.Email
	user.Address = req.Address
	user.Zip = req.Zip

	switch subject.Role {
	case domain.RoleClient:
		client := &domain.Client{
			CID:       subject.ActorID,
			UID:       user.UID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			CellPhone: req.CellPhone,
		}
		if err := h.Users.UpdateClientUser(r.Context(), user, client); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Client info updated"})
	case domain.RoleBusiness:
		business := &domain.Business{
			BID:          subject.ActorID,
			UID:          user.UID,
			Name:         req.Name,
			WorkPhone:    req.WorkPhone,
			Instructions: req.Instructions,
		}
		if err := h.Users.UpdateBusinessUser(r.Context(), user, business); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Business info updated"})
	default:
		writeDomainError(w, r, domain.ErrWrongUserType)
	}
}

func (h *UserHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req dto.SetPasswordRequest
	if !readJSON(w, r, &req) {
		return
	}

	user, ok := h.checkPassword(w, r, req.Credentials)
	if !ok {
		return
	}

	if req.NewPassword == "" {
		WriteError(w, r, http.StatusBadRequest, "new password is required")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := h.Users.SetPassword(r.Context(), user.UID, hash); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Password has been reset"})
}

// Delete removes a client account. Business accounts are not deletable
// through the API.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var cred dto.Credentials
	if !readJSON(w, r, &cred) {
		return
	}

	user, ok := h.checkPassword(w, r, cred)
	if !ok {
		return
	}

	if err := h.Users.DeleteClientUser(r.Context(), user.UID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "User deleted successfully"})
}
