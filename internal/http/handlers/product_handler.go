// Product HTTP handlers.
//
// This file exposes the marketplace listing endpoints:
//   - GET    /products        (public search, ETag support)
//   - GET    /products/{id}   (public)
//   - POST   /products        (seller creates a listing, multipart)
//   - PUT    /products/{id}   (owner edits, JSON)
//   - DELETE /products/{id}   (owner deletes; blocked when ordered)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/repo"
	"github.com/anidigital/harvest-hub/internal/services"
	"github.com/anidigital/harvest-hub/internal/utils"
)

//
// DTOs
//

// CreateProductForm is the multipart form for a new listing. The optional
// image arrives in the "image" part.
type CreateProductForm struct {
	Name        string `form:"name" binding:"required,max=200" example:"Carabao mangoes"`
	Description string `form:"description" binding:"max=4000"`
	Category    string `form:"category" binding:"required,category" example:"Fruits"`
	Price       string `form:"price" binding:"required,decimal" example:"85.50"`
	Quantity    string `form:"quantity" binding:"required,decimal" example:"120"`
	Unit        string `form:"unit" binding:"max=20" example:"kg"`
}

// UpdateProductRequest is a partial edit; omitted fields are unchanged.
type UpdateProductRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=200"`
	Description *string `json:"description" binding:"omitempty,max=4000"`
	Category    *string `json:"category" binding:"omitempty,category"`
	Price       *string `json:"price" binding:"omitempty,decimal" example:"90"`
	Quantity    *string `json:"quantity" binding:"omitempty,decimal" example:"80"`
	Unit        *string `json:"unit" binding:"omitempty,max=20"`
}

// ListProductsResponse wraps a listing page.
type ListProductsResponse struct {
	Products []domain.Product `json:"products"`
}

const (
	defaultProductLimit = 50
	maxProductLimit     = 200
)

func productID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a UUID")
		return "", false
	}
	return id, true
}

// productQuery reads the listing filters from the query string.
func productQuery(c *gin.Context) (services.ProductQuery, bool) {
	var q services.ProductQuery
	minPrice, err := utils.ParseDecimalPtr(c.Query("min_price"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "min_price must be a number")
		return q, false
	}
	maxPrice, err := utils.ParseDecimalPtr(c.Query("max_price"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "max_price must be a number")
		return q, false
	}
	sort := strings.TrimSpace(c.Query("sort"))
	if sort != "" && sort != services.SortNewest && sort != services.SortRelevance {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sort must be newest or relevance")
		return q, false
	}
	q.ProductFilter = repo.ProductFilter{
		Query:    strings.TrimSpace(c.Query("q")),
		Category: strings.TrimSpace(c.Query("category")),
		SellerID: strings.TrimSpace(c.Query("seller_id")),
		ShopID:   strings.TrimSpace(c.Query("shop_id")),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		InStock:  c.Query("in_stock") == "true" || c.Query("in_stock") == "1",
		Limit:    utils.Clamp(utils.AtoiDefault(c.Query("limit"), defaultProductLimit), 1, maxProductLimit),
		Offset:   utils.Clamp(utils.AtoiDefault(c.Query("offset"), 0), 0, 1<<20),
	}
	q.Sort = sort
	return q, true
}

// ListProducts godoc
// @ID          listProducts
// @Summary     Search the marketplace
// @Description Newest first by default; sort=relevance ranks by overlap with q. Supports a weak ETag via If-None-Match.
// @Tags        Products
// @Produce     json
// @Param       q              query   string  false  "Substring across name, description and seller"
// @Param       category       query   string  false  "Category"            example(Vegetables)
// @Param       min_price      query   string  false  "Minimum price"
// @Param       max_price      query   string  false  "Maximum price"
// @Param       seller_id      query   string  false  "Seller ID"
// @Param       shop_id        query   string  false  "Shop ID"
// @Param       in_stock       query   bool    false  "Only listings with stock"
// @Param       sort           query   string  false  "newest|relevance"   default(newest)
// @Param       limit          query   int     false  "Page size"          minimum(1) maximum(200) default(50)
// @Param       offset         query   int     false  "Offset"             minimum(0) default(0)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListProductsResponse
// @Header      200  {string}  ETag  "Weak ETag for the catalogue"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	q, valid := productQuery(c)
	if !valid {
		return
	}

	// The fingerprint covers the whole catalogue, so it is combined with
	// the query string.
	if h.Stats != nil {
		if tag, err := h.Stats.ProductsETag(ctx); err == nil && tag != "" {
			etag := strings.TrimSuffix(tag, `"`) + ":" + shortHash(c.Request.URL.RawQuery) + `"`
			if notModified(c, etag) {
				return
			}
		}
	}

	items, err := h.Products.List(ctx, q)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListProductsResponse{Products: items})
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Get a listing
// @Tags        Products
// @Produce     json
// @Param       id   path      string  true  "Product ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Product
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /products/{id} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	id, valid := productID(c)
	if !valid {
		return
	}
	p, err := h.Products.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// CreateProduct godoc
// @ID          createProduct
// @Summary     Create a listing
// @Description The listing is attached to the seller's shop when one exists.
// @Tags        Products
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       name         formData  string  true   "Name"
// @Param       description  formData  string  false  "Description"
// @Param       category     formData  string  true   "Category"
// @Param       price        formData  string  true   "Unit price"
// @Param       quantity     formData  string  true   "Stock"
// @Param       unit         formData  string  false  "Unit"  default(kg)
// @Param       image        formData  file    false  "Photo"
// @Success     201  {object}  domain.Product
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     415  {object}  handlers.ErrorResponse  "Not an image"
// @Router      /products [post]
func (h *Handlers) CreateProduct(c *gin.Context) {
	var form CreateProductForm
	if err := c.ShouldBind(&form); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, known category, numeric price and quantity are required")
		return
	}
	image, err := readUpload(c, "image", false)
	if err != nil {
		failErr(c, err)
		return
	}
	in := services.ProductInput{
		Name:        form.Name,
		Description: form.Description,
		Category:    form.Category,
		Unit:        form.Unit,
	}
	if d := optDecimal(&form.Price); d != nil {
		in.Price = *d
	}
	if d := optDecimal(&form.Quantity); d != nil {
		in.Quantity = *d
	}
	p, err := h.Products.Create(c.Request.Context(), userID(c), in, image)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// UpdateProduct godoc
// @ID          updateProduct
// @Summary     Edit a listing
// @Tags        Products
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string  true  "Product ID (UUID)"  format(uuid)
// @Param       body  body      handlers.UpdateProductRequest  true  "Fields to change"
// @Success     200   {object}  domain.Product
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403   {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404   {object}  handlers.ErrorResponse  "Not found"
// @Router      /products/{id} [put]
func (h *Handlers) UpdateProduct(c *gin.Context) {
	id, valid := productID(c)
	if !valid {
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid product update")
		return
	}
	p, err := h.Products.Update(c.Request.Context(), userID(c), id, services.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       optDecimal(req.Price),
		Quantity:    optDecimal(req.Quantity),
		Unit:        req.Unit,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeleteProduct godoc
// @ID          deleteProduct
// @Summary     Delete a listing
// @Tags        Products
// @Security    BearerAuth
// @Param       id   path  string  true  "Product ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     409  {object}  handlers.ErrorResponse  "Product has orders"
// @Router      /products/{id} [delete]
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id, valid := productID(c)
	if !valid {
		return
	}
	if err := h.Products.Delete(c.Request.Context(), userID(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
