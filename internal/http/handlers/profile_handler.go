package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anidigital/harvest-hub/internal/services"
)

// SaveProfileRequest replaces the caller's profile.
type SaveProfileRequest struct {
	FullName  string `json:"full_name" binding:"required,max=200" example:"Juan Dela Cruz"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url,max=2048"`
	Location  string `json:"location" binding:"max=200" example:"Cabanatuan City"`
	Phone     string `json:"phone" binding:"max=40" example:"+63 917 555 0100"`
}

// GetMyProfile godoc
// @ID          getMyProfile
// @Summary     The caller's profile
// @Tags        Profiles
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.Profile
// @Router      /me/profile [get]
func (h *Handlers) GetMyProfile(c *gin.Context) {
	p, err := h.Profiles.Get(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// SaveMyProfile godoc
// @ID          saveMyProfile
// @Summary     Create or replace the caller's profile
// @Tags        Profiles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.SaveProfileRequest  true  "Profile"
// @Success     200   {object}  domain.Profile
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Router      /me/profile [put]
func (h *Handlers) SaveMyProfile(c *gin.Context) {
	var req SaveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "full_name required")
		return
	}
	p, err := h.Profiles.Save(c.Request.Context(), userID(c), services.ProfileInput{
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
		Location:  req.Location,
		Phone:     req.Phone,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Public profile of a user
// @Tags        Profiles
// @Produce     json
// @Param       id   path      string  true  "User ID"
// @Success     200  {object}  domain.PublicProfile
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /profiles/{id} [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.Profiles.Public(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}
