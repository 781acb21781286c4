package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/service"
)

const pictureField = "profilePicture"

// multipartOverhead is room for the non-file form fields and multipart
// framing on top of the file size limit.
const multipartOverhead = 1 << 20

// ProfileHandler serves the caller's profile and the profile-picture
// endpoints.
type ProfileHandler struct {
	profiles  *service.ProfileService
	maxUpload int64
	logger    *slog.Logger
}

// NewProfileHandler creates a ProfileHandler. maxUpload bounds a single
// uploaded file.
func NewProfileHandler(profiles *service.ProfileService, maxUpload int64, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, maxUpload: maxUpload, logger: logger}
}

// profileRequest uses pointers so an omitted field means "leave as is".
type profileRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Gender  *string `json:"gender"`
	Address *string `json:"address"`
}

func (p profileRequest) fields() service.ProfileFields {
	return service.ProfileFields{
		Name:    p.Name,
		Email:   p.Email,
		Phone:   p.Phone,
		Gender:  p.Gender,
		Address: p.Address,
	}
}

// HandleGetProfile returns the caller's account.
//
// HTTP: GET /api/user/profile
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	user, err := h.profiles.GetProfile(r.Context(), id.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateProfile edits the caller's account.
//
// HTTP: PUT /api/user/profile
//
// Accepts either a JSON body or a multipart form with the same field names
// plus an optional "profilePicture" file.
func (h *ProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var (
		req profileRequest
		pic *service.Upload
	)
	if isMultipart(r) {
		if err := h.parseMultipart(w, r); err != nil {
			writeError(w, h.logger, err)
			return
		}
		form := r.MultipartForm.Value
		field := func(name string) *string {
			if v, ok := form[name]; ok && len(v) > 0 {
				return &v[0]
			}
			return nil
		}
		req = profileRequest{
			Name:    field("name"),
			Email:   field("email"),
			Phone:   field("phone"),
			Gender:  field("gender"),
			Address: field("address"),
		}

		var err error
		if pic, err = h.readUpload(r); err != nil {
			writeError(w, h.logger, err)
			return
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), id.UserID, req.fields(), pic)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUploadPicture stores a new profile picture and selects it.
//
// HTTP: POST /api/profile-picture (multipart, file field "profilePicture")
func (h *ProfileHandler) HandleUploadPicture(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.parseMultipart(w, r); err != nil {
		writeError(w, h.logger, err)
		return
	}
	pic, err := h.readUpload(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if pic == nil {
		writeError(w, h.logger, apperror.ValidationFailed(pictureField, "no file uploaded"))
		return
	}

	b, err := h.profiles.UploadProfilePicture(r.Context(), id.UserID, *pic)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "imageId": b.ID})
}

// HandleGetPicture serves an image's bytes. Public.
//
// HTTP: GET /api/profile-picture/{id}
func (h *ProfileHandler) HandleGetPicture(w http.ResponseWriter, r *http.Request) {
	b, err := h.profiles.GetImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", b.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(b.Data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Data)
}

// HandleSetPicture selects one of the caller's earlier uploads.
//
// HTTP: PUT /api/profile-picture
// Body: {"imageId": "..."}
func (h *ProfileHandler) HandleSetPicture(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req struct {
		ImageID string `json:"imageId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.profiles.SetProfilePicture(r.Context(), id.UserID, req.ImageID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// HandleDeletePicture removes an image. Uploader or admin only.
//
// HTTP: DELETE /api/profile-picture/{id}
func (h *ProfileHandler) HandleDeletePicture(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	err := h.profiles.DeleteImage(r.Context(), id.UserID, id.Role == model.RoleAdmin, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// parseMultipart parses a multipart body no larger than the upload limit
// plus framing.
func (h *ProfileHandler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if !isMultipart(r) {
		return apperror.ValidationFailed("body", "expected multipart/form-data")
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUpload + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed(pictureField,
				fmt.Sprintf("file is larger than %d bytes", h.maxUpload))
		}
		return apperror.ValidationFailed("body", "invalid multipart form")
	}
	return nil
}

// readUpload returns the "profilePicture" file of a parsed multipart form,
// or nil when none was sent.
func (h *ProfileHandler) readUpload(r *http.Request) (*service.Upload, error) {
	file, header, err := r.FormFile(pictureField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.ValidationFailed(pictureField, "unreadable file")
	}
	defer file.Close()

	// One byte over the limit is enough to know the file is too large.
	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("handler: reading upload: %w", err)
	}

	return &service.Upload{Filename: header.Filename, Data: data}, nil
}
