package handlers

import (
	"net/http"
	"strings"

	"foodshare-service/internal/api/dto"
	"foodshare-service/internal/domain"
	"foodshare-service/internal/ports"
	"foodshare-service/internal/services"
)

// PackageHandler exposes the package lifecycle endpoints. State changes go
// through the claim arbiter; listings read the store directly.
type PackageHandler struct {
	Arbiter *services.ClaimArbiter
	Store   ports.PackageStore
	Users   ports.UserStore
}

func (h *PackageHandler) subject(w http.ResponseWriter, r *http.Request) (domain.Subject, bool) {
	subject, ok := SubjectFrom(r.Context())
	if !ok {
		WriteError(w, r, http.StatusUnauthorized, "session is invalid or expired")
		return domain.Subject{}, false
	}
	return subject, true
}

func (h *PackageHandler) requireBusiness(w http.ResponseWriter, r *http.Request) (domain.Subject, bool) {
	subject, ok := h.subject(w, r)
	if !ok {
		return domain.Subject{}, false
	}
	if subject.Role != domain.RoleBusiness {
		writeDomainError(w, r, domain.ErrWrongUserType)
		return domain.Subject{}, false
	}
	return subject, true
}

func (h *PackageHandler) GetPackages(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	var req dto.ListPackagesRequest
	if !readJSON(w, r, &req) {
		return
	}

	var (
		pkgs []*domain.Package
		err  error
	)
	switch subject.Role {
	case domain.RoleBusiness:
		pkgs, err = h.Store.ListByOwner(r.Context(), subject.ActorID, req.OnlyEligible)
	case domain.RoleClient:
		pkgs, err = h.Store.ListForClient(r.Context(), subject.ActorID, req.OnlyEligible)
	default:
		writeDomainError(w, r, domain.ErrWrongUserType)
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	// Pickup details per owning business; packages in one listing usually
	// share only a handful of owners.
	type profile struct{ name, address string }
	profiles := make(map[int]profile)

	res := dto.ListPackagesResponse{Packages: make([]dto.PackageInfo, 0, len(pkgs))}
	for _, p := range pkgs {
		prof, cached := profiles[p.OwnerBID]
		if !cached {
			name, address, err := h.Users.BusinessProfile(r.Context(), p.OwnerBID)
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			prof = profile{name: name, address: address}
			profiles[p.OwnerBID] = prof
		}

		res.Packages = append(res.Packages, dto.PackageInfo{
			PID:             p.PackageID,
			OwnerBID:        p.OwnerBID,
			ClaimerCID:      p.ClaimerCID,
			Name:            p.Name,
			Description:     p.Description,
			Quantity:        p.Quantity,
			Price:           p.Price,
			Created:         p.Created,
			Expires:         p.Expires,
			Claimed:         p.Claimed,
			Received:        p.Received,
			BusinessName:    prof.name,
			BusinessAddress: prof.address,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *PackageHandler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	subject, ok := h.requireBusiness(w, r)
	if !ok {
		return
	}

	var req dto.CreatePackageRequest
	if !readJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, r, http.StatusBadRequest, "package name is required")
		return
	}

	pkg := &domain.Package{
		OwnerBID:    subject.ActorID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Expires:     req.Expires,
	}

	if err := h.Arbiter.CreatePackage(r.Context(), pkg); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Package created"})
}

func (h *PackageHandler) DeletePackage(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	subject, ok := h.requireBusiness(w, r)
	if !ok {
		return
	}

	var req dto.PackageIDRequest
	if !readJSON(w, r, &req) {
		return
	}

	if err := h.Arbiter.Delete(r.Context(), req.PID, subject.ActorID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Package has been deleted"})
}

// Claim handles the shared claim endpoint: a client claims or unclaims per
// the request's claim field, a business unassigns the current claimer from
// its own package.
func (h *PackageHandler) Claim(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	var req dto.ClaimRequest
	if !readJSON(w, r, &req) {
		return
	}

	switch subject.Role {
	case domain.RoleBusiness:
		if err := h.Arbiter.BusinessUnassign(r.Context(), req.PID, subject.ActorID); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Unclaimed package"})
	case domain.RoleClient:
		if req.Claim != nil && *req.Claim {
			if err := h.Arbiter.Claim(r.Context(), req.PID, subject.ActorID); err != nil {
				writeDomainError(w, r, err)
				return
			}
			writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Claimed package"})
			return
		}
		if err := h.Arbiter.Unclaim(r.Context(), req.PID, subject.ActorID); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Unclaimed package"})
	default:
		writeDomainError(w, r, domain.ErrWrongUserType)
	}
}

func (h *PackageHandler) MarkReceived(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	subject, ok := h.requireBusiness(w, r)
	if !ok {
		return
	}

	var req dto.PackageIDRequest
	if !readJSON(w, r, &req) {
		return
	}

	if err := h.Arbiter.MarkReceived(r.Context(), req.PID, subject.ActorID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "Marked package as received"})
}
