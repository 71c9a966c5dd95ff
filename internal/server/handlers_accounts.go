package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"careercatalyst/internal/api"
	internalauth "careercatalyst/internal/auth"
	"careercatalyst/internal/models"
	"careercatalyst/internal/store"
)

// handleRegisterIndividual creates a student account together with its resume.
// The multipart form carries name, email, password, college, year,
// department and the resume file.
func (s *Server) handleRegisterIndividual(w http.ResponseWriter, r *http.Request) {
	if !s.acquireLimiter(s.uploadLimiter, w, r, "upload") {
		return
	}
	defer s.releaseLimiter(s.uploadLimiter)

	if !s.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	ctx := r.Context()
	name, err := requireText("name", r.FormValue("name"), maxNameLength)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	email, err := internalauth.NormalizeEmail(r.FormValue("email"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidEmail))
		return
	}
	password := r.FormValue("password")
	passwordHash, err := internalauth.HashPassword(password)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidPassword))
		return
	}
	year, err := optionalText("year", r.FormValue("year"), maxShortFieldLength)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	department, err := optionalText("department", r.FormValue("department"), maxShortFieldLength)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	existing, err := s.store.GetIndividualByEmail(ctx, email)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if existing != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(store.ErrDuplicateEmail, ErrCodeEmailTaken))
		return
	}

	institutionID := strings.TrimSpace(r.FormValue("college"))
	var institution *models.Institution
	if validateInstitutionID(institutionID) {
		institution, err = s.store.GetInstitution(ctx, institutionID)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
	}
	if institution == nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid college id"), ErrCodeInvalidInstitution))
		return
	}

	upload, closeUpload, ok := s.formUpload(w, r, "resume")
	if !ok {
		return
	}
	defer closeUpload()

	id, err := store.GenerateAccountID(models.AccountIndividual, s.store.IndividualExists)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	now := time.Now().UTC()
	individual := &models.Individual{
		ID:            id,
		Name:          name,
		Email:         email,
		PasswordHash:  passwordHash,
		InstitutionID: institution.ID,
		Year:          year,
		Department:    department,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	loc, err := s.resumes.Register(ctx, individual, upload)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeEmailTaken))
			return
		}
		s.writeResumeError(w, r, err)
		return
	}
	individual.ResumeKey = loc.Key

	s.log().Info("individual registered", "owner_id", individual.ID, "institution_id", institution.ID, "key", loc.Key, "size_bytes", loc.SizeBytes)
	resp := individualAccount(individual)
	resp.Resume.SizeBytes = loc.SizeBytes
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRegisterInstitution(w http.ResponseWriter, r *http.Request) {
	var req api.InstitutionRegisterRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	name, email, passwordHash, err := validateRegistration(req.Name, req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	location, err := optionalText("location", req.Location, maxNameLength)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	id, err := store.GenerateAccountID(models.AccountInstitution, s.store.InstitutionExists)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	now := time.Now().UTC()
	institution := &models.Institution{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Location:     location,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateInstitution(r.Context(), institution); err != nil {
		s.writeRegistrationError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, institutionAccount(institution))
}

func (s *Server) handleRegisterOrganization(w http.ResponseWriter, r *http.Request) {
	var req api.OrganizationRegisterRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	name, email, passwordHash, err := validateRegistration(req.Name, req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	industry, err := optionalText("industry", req.Industry, maxShortFieldLength)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	id, err := store.GenerateAccountID(models.AccountOrganization, s.store.OrganizationExists)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	now := time.Now().UTC()
	organization := &models.Organization{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Industry:     industry,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateOrganization(r.Context(), organization); err != nil {
		s.writeRegistrationError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, organizationAccount(organization))
}

func validateRegistration(rawName, rawEmail, password string) (name, email, passwordHash string, err error) {
	name, err = requireText("name", rawName, maxNameLength)
	if err != nil {
		return "", "", "", err
	}
	email, err = internalauth.NormalizeEmail(rawEmail)
	if err != nil {
		return "", "", "", badRequestCode(err, ErrCodeInvalidEmail)
	}
	passwordHash, err = internalauth.HashPassword(password)
	if err != nil {
		return "", "", "", badRequestCode(err, ErrCodeInvalidPassword)
	}
	return name, email, passwordHash, nil
}

func (s *Server) writeRegistrationError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrDuplicateEmail) {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeEmailTaken))
		return
	}
	s.writeStoreError(w, r, err)
}

func (s *Server) handleLogin(kind models.AccountKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		if !s.decodeJSONReq(w, r, &req) {
			return
		}

		now := time.Now().UTC()
		limiterKey := loginAttemptKey(kind, req.Email, r)
		if ok, wait := s.loginLimiter.Allow(limiterKey, now); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second)/time.Second)))
			s.writeErrorReq(w, r, http.StatusTooManyRequests, apiError{
				status:  http.StatusTooManyRequests,
				code:    "resource_exhausted",
				errCode: ErrCodeResourceExhausted,
				err:     fmt.Errorf("too many login attempts; retry later"),
			})
			return
		}

		result, err := s.authService.Login(r.Context(), kind, req.Email, req.Password, now)
		if err != nil {
			message := strings.ToLower(err.Error())
			switch {
			case errors.Is(err, errInvalidCredentials):
				s.loginLimiter.RegisterFailure(limiterKey, now)
				s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(errInvalidCredentials))
			case strings.Contains(message, "email") || strings.Contains(message, "password"):
				s.writeErrorReq(w, r, http.StatusBadRequest, badRequest(err))
			default:
				s.writeStoreError(w, r, err)
			}
			return
		}
		s.loginLimiter.Reset(limiterKey)

		account, err := s.accountProfile(r, result.Principal)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    result.Token,
			Path:     "/",
			HttpOnly: true,
			Secure:   requestScheme(r) == "https",
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(defaultSessionTTL / time.Second),
			Expires:  result.ExpiresAt,
		})
		s.writeJSON(w, http.StatusOK, api.LoginResponse{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt,
			Account:   account,
		})
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, _ := requestToken(r); token != "" {
		if err := s.authService.RevokeSessionToken(r.Context(), token, time.Now().UTC()); err != nil {
			s.writeStoreError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	account, err := s.accountProfile(r, principal)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleListInstitutions(w http.ResponseWriter, r *http.Request) {
	institutions, err := s.store.ListInstitutions(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	resp := make([]api.InstitutionSummary, 0, len(institutions))
	for _, institution := range institutions {
		resp = append(resp, api.InstitutionSummary{ID: institution.ID, Name: institution.Name, Location: institution.Location})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// accountProfile loads the account behind principal. A session whose account
// was deleted yields 401.
func (s *Server) accountProfile(r *http.Request, principal models.Principal) (api.AccountResponse, error) {
	ctx := r.Context()
	var (
		resp  api.AccountResponse
		found bool
	)
	switch principal.Kind {
	case models.AccountIndividual:
		individual, err := s.store.GetIndividual(ctx, principal.ID)
		if err != nil {
			return resp, storeFailure(err)
		}
		if found = individual != nil; found {
			resp = individualAccount(individual)
		}
	case models.AccountInstitution:
		institution, err := s.store.GetInstitution(ctx, principal.ID)
		if err != nil {
			return resp, storeFailure(err)
		}
		if found = institution != nil; found {
			resp = institutionAccount(institution)
		}
	case models.AccountOrganization:
		organization, err := s.store.GetOrganization(ctx, principal.ID)
		if err != nil {
			return resp, storeFailure(err)
		}
		if found = organization != nil; found {
			resp = organizationAccount(organization)
		}
	}
	if !found {
		return resp, unauthorized(fmt.Errorf("account no longer exists"))
	}
	return resp, nil
}

func individualAccount(individual *models.Individual) api.AccountResponse {
	return api.AccountResponse{
		Kind:          models.AccountIndividual,
		ID:            individual.ID,
		Name:          individual.Name,
		Email:         individual.Email,
		InstitutionID: individual.InstitutionID,
		Year:          individual.Year,
		Department:    individual.Department,
		Resume:        resumeRef(individual.ResumeKey),
		CreatedAt:     individual.CreatedAt,
	}
}

func institutionAccount(institution *models.Institution) api.AccountResponse {
	return api.AccountResponse{
		Kind:      models.AccountInstitution,
		ID:        institution.ID,
		Name:      institution.Name,
		Email:     institution.Email,
		Location:  institution.Location,
		CreatedAt: institution.CreatedAt,
	}
}

func organizationAccount(organization *models.Organization) api.AccountResponse {
	return api.AccountResponse{
		Kind:      models.AccountOrganization,
		ID:        organization.ID,
		Name:      organization.Name,
		Email:     organization.Email,
		Industry:  organization.Industry,
		CreatedAt: organization.CreatedAt,
	}
}

func loginAttemptKey(kind models.AccountKind, email string, r *http.Request) string {
	user := strings.ToLower(strings.TrimSpace(email))
	if user == "" {
		user = "<empty>"
	}
	ip := requestClientIP(r)
	if ip == "" {
		ip = "<unknown>"
	}
	return ip + "|" + string(kind) + "|" + user
}

func requestClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}
