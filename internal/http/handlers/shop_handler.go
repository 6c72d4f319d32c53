// Shop HTTP handlers.
//
//   - GET  /shops         (public)
//   - GET  /shops/mine    (caller's shop with products)
//   - GET  /shops/{id}    (public, with products)
//   - POST /shops         (create, multipart with optional banner)
//   - PUT  /shops/{id}    (owner edits, multipart with optional banner)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/services"
)

// ShopForm carries shop fields. On update an omitted field is unchanged.
type ShopForm struct {
	Name        *string `form:"name" binding:"omitempty,max=200" example:"Dela Cruz Farm"`
	Description *string `form:"description" binding:"omitempty,max=4000"`
	Location    *string `form:"location" binding:"omitempty,max=200" example:"Nueva Ecija"`
}

// ListShopsResponse lists storefronts.
type ListShopsResponse struct {
	Shops []domain.Shop `json:"shops"`
}

func (f ShopForm) input() services.ShopInput {
	return services.ShopInput{Name: f.Name, Description: f.Description, Location: f.Location}
}

// bindShop reads the form and the optional "banner" part.
func bindShop(c *gin.Context) (services.ShopInput, []byte, bool) {
	var form ShopForm
	if err := c.ShouldBind(&form); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid shop form")
		return services.ShopInput{}, nil, false
	}
	banner, err := readUpload(c, "banner", false)
	if err != nil {
		failErr(c, err)
		return services.ShopInput{}, nil, false
	}
	return form.input(), banner, true
}

// ListShops godoc
// @ID          listShops
// @Summary     List shops
// @Tags        Shops
// @Produce     json
// @Success     200  {object}  handlers.ListShopsResponse
// @Router      /shops [get]
func (h *Handlers) ListShops(c *gin.Context) {
	shops, err := h.Shops.List(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListShopsResponse{Shops: shops})
}

// GetShop godoc
// @ID          getShop
// @Summary     Get a shop with its products
// @Tags        Shops
// @Produce     json
// @Param       id   path      string  true  "Shop ID (UUID)"  format(uuid)
// @Success     200  {object}  services.ShopDetail
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /shops/{id} [get]
func (h *Handlers) GetShop(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "shop id must be a UUID")
		return
	}
	d, err := h.Shops.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// MyShop godoc
// @ID          myShop
// @Summary     The caller's shop
// @Tags        Shops
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.ShopDetail
// @Failure     404  {object}  handlers.ErrorResponse  "No shop yet"
// @Router      /shops/mine [get]
func (h *Handlers) MyShop(c *gin.Context) {
	d, err := h.Shops.Mine(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// CreateShop godoc
// @ID          createShop
// @Summary     Open a shop
// @Description One shop per owner.
// @Tags        Shops
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       name         formData  string  true   "Name"
// @Param       description  formData  string  false  "Description"
// @Param       location     formData  string  false  "Location"
// @Param       banner       formData  file    false  "Banner image"
// @Success     201  {object}  domain.Shop
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Shop already exists"
// @Router      /shops [post]
func (h *Handlers) CreateShop(c *gin.Context) {
	in, banner, valid := bindShop(c)
	if !valid {
		return
	}
	s, err := h.Shops.Create(c.Request.Context(), userID(c), in, banner)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, s)
}

// UpdateShop godoc
// @ID          updateShop
// @Summary     Edit a shop
// @Description A new banner replaces the stored one.
// @Tags        Shops
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id           path      string  true   "Shop ID (UUID)"  format(uuid)
// @Param       name         formData  string  false  "Name"
// @Param       description  formData  string  false  "Description"
// @Param       location     formData  string  false  "Location"
// @Param       banner       formData  file    false  "Banner image"
// @Success     200  {object}  domain.Shop
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Router      /shops/{id} [put]
func (h *Handlers) UpdateShop(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "shop id must be a UUID")
		return
	}
	in, banner, valid := bindShop(c)
	if !valid {
		return
	}
	s, err := h.Shops.Update(c.Request.Context(), userID(c), id, in, banner)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}
