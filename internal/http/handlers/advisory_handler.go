// Advisory HTTP handlers: weather, crop diagnosis and feature discovery.
//
// Both providers are optional. When an API key is not configured their
// endpoints answer 503 feature_not_configured before any input is read, and
// GET /features reports them as disabled.
package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anidigital/harvest-hub/internal/cropdoctor"
	"github.com/anidigital/harvest-hub/internal/weather"
)

// FeaturesResponse tells clients which optional integrations are live.
type FeaturesResponse struct {
	Weather       bool `json:"weather"`
	CropDiagnosis bool `json:"crop_diagnosis"`
}

// CreatePolygonRequest names a farm area and the place to geocode.
type CreatePolygonRequest struct {
	Name     string `json:"name" binding:"required,max=100" example:"North rice paddy"`
	Location string `json:"location" binding:"required,max=200" example:"Science City of Muñoz, Nueva Ecija"`
}

// ForecastResponse is the hourly (3-hourly) forecast list.
type ForecastResponse struct {
	Forecast []weather.Conditions `json:"forecast"`
}

// DailyForecastResponse is the forecast aggregated per local day.
type DailyForecastResponse struct {
	Days []weather.DailyForecast `json:"days"`
}

// ListPolygonsResponse lists the registered farm areas.
type ListPolygonsResponse struct {
	Polygons []weather.Polygon `json:"polygons"`
}

// DiagnosisFeedbackRequest rates an identification.
type DiagnosisFeedbackRequest struct {
	Comment string `json:"comment" binding:"max=1000" example:"treatment worked"`
	Rating  int    `json:"rating" binding:"min=0,max=10" example:"8"`
}

func (h *Handlers) weatherEnabled() bool    { return h.Weather != nil && h.Weather.Enabled() }
func (h *Handlers) cropDoctorEnabled() bool { return h.CropDoctor != nil && h.CropDoctor.Enabled() }

// requireWeather and requireCropDoctor answer 503 when the provider is off.
func (h *Handlers) requireWeather(c *gin.Context) bool {
	if !h.weatherEnabled() {
		fail(c, http.StatusServiceUnavailable, ErrCodeFeatureUnavailable, "weather is not configured")
		return false
	}
	return true
}

func (h *Handlers) requireCropDoctor(c *gin.Context) bool {
	if !h.cropDoctorEnabled() {
		fail(c, http.StatusServiceUnavailable, ErrCodeFeatureUnavailable, "crop diagnosis is not configured")
		return false
	}
	return true
}

// point parses lat and lon query parameters.
func point(c *gin.Context) (weather.Point, bool) {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(c.Query("lat")), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(c.Query("lon")), 64)
	p := weather.Point{Lat: lat, Lon: lon}
	if errLat != nil || errLon != nil || !p.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lat and lon must be valid coordinates")
		return p, false
	}
	return p, true
}

// Features godoc
// @ID          features
// @Summary     Optional integrations
// @Tags        Advisory
// @Produce     json
// @Success     200  {object}  handlers.FeaturesResponse
// @Router      /features [get]
func (h *Handlers) Features(c *gin.Context) {
	ok(c, http.StatusOK, FeaturesResponse{Weather: h.weatherEnabled(), CropDiagnosis: h.cropDoctorEnabled()})
}

// CurrentWeather godoc
// @ID          currentWeather
// @Summary     Current conditions
// @Tags        Advisory
// @Produce     json
// @Security    BearerAuth
// @Param       lat  query     number  true  "Latitude"   example(15.7164)
// @Param       lon  query     number  true  "Longitude"  example(120.9031)
// @Success     200  {object}  weather.Conditions
// @Failure     400  {object}  handlers.ErrorResponse  "Bad coordinates"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Not configured"
// @Router      /weather/current [get]
func (h *Handlers) CurrentWeather(c *gin.Context) {
	if !h.requireWeather(c) {
		return
	}
	p, valid := point(c)
	if !valid {
		return
	}
	w, err := h.Weather.Current(c.Request.Context(), p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}

// Forecast godoc
// @ID          forecast
// @Summary     Hourly forecast
// @Tags        Advisory
// @Produce     json
// @Security    BearerAuth
// @Param       lat  query     number  true  "Latitude"
// @Param       lon  query     number  true  "Longitude"
// @Success     200  {object}  handlers.ForecastResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Not configured"
// @Router      /weather/forecast [get]
func (h *Handlers) Forecast(c *gin.Context) {
	if !h.requireWeather(c) {
		return
	}
	p, valid := point(c)
	if !valid {
		return
	}
	list, err := h.Weather.Forecast(c.Request.Context(), p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ForecastResponse{Forecast: list})
}

// DailyForecast godoc
// @ID          dailyForecast
// @Summary     Forecast aggregated per day
// @Tags        Advisory
// @Produce     json
// @Security    BearerAuth
// @Param       lat  query     number  true  "Latitude"
// @Param       lon  query     number  true  "Longitude"
// @Success     200  {object}  handlers.DailyForecastResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Not configured"
// @Router      /weather/forecast/daily [get]
func (h *Handlers) DailyForecast(c *gin.Context) {
	if !h.requireWeather(c) {
		return
	}
	p, valid := point(c)
	if !valid {
		return
	}
	days, err := h.Weather.Daily(c.Request.Context(), p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, DailyForecastResponse{Days: days})
}

// ListPolygons godoc
// @ID          listPolygons
// @Summary     Registered farm areas
// @Tags        Advisory
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ListPolygonsResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Not configured"
// @Router      /weather/polygons [get]
func (h *Handlers) ListPolygons(c *gin.Context) {
	if !h.requireWeather(c) {
		return
	}
	list, err := h.Weather.Polygons(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListPolygonsResponse{Polygons: list})
}

// CreatePolygon godoc
// @ID          createPolygon
// @Summary     Register a farm area
// @Description Geocodes location and registers a square polygon around it.
// @Tags        Advisory
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CreatePolygonRequest  true  "Area"
// @Success     201   {object}  weather.Polygon
// @Failure     404   {object}  handlers.ErrorResponse  "Location not found"
// @Failure     503   {object}  handlers.ErrorResponse  "Not configured"
// @Router      /weather/polygons [post]
func (h *Handlers) CreatePolygon(c *gin.Context) {
	if !h.requireWeather(c) {
		return
	}
	var req CreatePolygonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and location required")
		return
	}
	poly, err := h.Weather.CreatePolygon(c.Request.Context(), req.Name, req.Location)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, poly)
}

// DeletePolygon godoc
// @ID          deletePolygon
// @Summary     Remove a farm area
// @Tags        Advisory
// @Security    BearerAuth
// @Param       id   path  string  true  "Polygon ID"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /weather/polygons/{id} [delete]
func (h *Handlers) DeletePolygon(c *gin.Context) {
	if !h.requireWeather(c) {
		return
	}
	if err := h.Weather.DeletePolygon(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// Diagnose godoc
// @ID          diagnose
// @Summary     Identify crop diseases from a photo
// @Tags        Advisory
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       image      formData  file    true   "Crop photo"
// @Param       latitude   formData  number  false  "Latitude"
// @Param       longitude  formData  number  false  "Longitude"
// @Success     201  {object}  cropdoctor.Identification
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or file too large"
// @Failure     415  {object}  handlers.ErrorResponse  "Not an image"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Not configured"
// @Router      /diagnoses [post]
func (h *Handlers) Diagnose(c *gin.Context) {
	if !h.requireCropDoctor(c) {
		return
	}
	image, err := readUpload(c, "image", true)
	if err != nil {
		failErr(c, err)
		return
	}

	var at *cropdoctor.Location
	latRaw, lonRaw := strings.TrimSpace(c.PostForm("latitude")), strings.TrimSpace(c.PostForm("longitude"))
	if latRaw != "" || lonRaw != "" {
		lat, errLat := strconv.ParseFloat(latRaw, 64)
		lon, errLon := strconv.ParseFloat(lonRaw, 64)
		if errLat != nil || errLon != nil || math.IsNaN(lat) || math.IsNaN(lon) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "latitude and longitude must both be numbers")
			return
		}
		at = &cropdoctor.Location{Lat: lat, Lon: lon}
	}

	res, err := h.CropDoctor.Identify(c.Request.Context(), image, at)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, res)
}

// GetDiagnosis godoc
// @ID          getDiagnosis
// @Summary     Fetch an identification by access token
// @Tags        Advisory
// @Produce     json
// @Security    BearerAuth
// @Param       token  path      string  true  "Access token"
// @Success     200    {object}  cropdoctor.Identification
// @Failure     404    {object}  handlers.ErrorResponse  "Not found"
// @Router      /diagnoses/{token} [get]
func (h *Handlers) GetDiagnosis(c *gin.Context) {
	if !h.requireCropDoctor(c) {
		return
	}
	res, err := h.CropDoctor.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// DiagnosisFeedback godoc
// @ID          diagnosisFeedback
// @Summary     Rate an identification
// @Tags        Advisory
// @Accept      json
// @Security    BearerAuth
// @Param       token  path  string  true  "Access token"
// @Param       body   body  handlers.DiagnosisFeedbackRequest  true  "Feedback"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /diagnoses/{token}/feedback [post]
func (h *Handlers) DiagnosisFeedback(c *gin.Context) {
	if !h.requireCropDoctor(c) {
		return
	}
	var req DiagnosisFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating must be 1 to 10, or 0 to omit it")
		return
	}
	if err := h.CropDoctor.Feedback(c.Request.Context(), c.Param("token"), req.Comment, req.Rating); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
