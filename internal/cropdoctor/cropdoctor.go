// Package cropdoctor wraps the crop.health identification API used for
// crop disease diagnosis. Results are never cached.
package cropdoctor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/anidigital/harvest-hub/internal/config"
	"github.com/anidigital/harvest-hub/internal/observability"
	"github.com/anidigital/harvest-hub/internal/storage"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const provider = "crop_health"

// detailFields is requested on every identification read.
const detailFields = "description,treatment,common_names,cause"

var (
	ErrDisabled     = errors.New("crop diagnosis not configured")
	ErrUpstream     = errors.New("crop diagnosis provider failed")
	ErrNotFound     = errors.New("identification not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Location optionally geotags a submission.
type Location struct {
	Lat float64
	Lon float64
}

// Treatment groups remedies by approach.
type Treatment struct {
	Biological []string `json:"biological,omitempty"`
	Chemical   []string `json:"chemical,omitempty"`
	Prevention []string `json:"prevention,omitempty"`
}

// Suggestion is one candidate crop or disease.
type Suggestion struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ScientificName string     `json:"scientific_name,omitempty"`
	Probability    float64    `json:"probability"`
	CommonNames    []string   `json:"common_names,omitempty"`
	Description    string     `json:"description,omitempty"`
	Cause          string     `json:"cause,omitempty"`
	Treatment      *Treatment `json:"treatment,omitempty"`
}

// Identification is a diagnosis result addressed by its access token.
type Identification struct {
	AccessToken   string       `json:"access_token"`
	Status        string       `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	IsPlant       bool         `json:"is_plant"`
	PlantScore    float64      `json:"plant_probability"`
	Crops         []Suggestion `json:"crops"`
	Diseases      []Suggestion `json:"diseases"`
	HealthyChance *float64     `json:"healthy_probability,omitempty"`
}

// Top returns the most probable disease, if any.
func (i *Identification) Top() *Suggestion {
	if len(i.Diseases) == 0 {
		return nil
	}
	best := &i.Diseases[0]
	for k := range i.Diseases {
		if i.Diseases[k].Probability > best.Probability {
			best = &i.Diseases[k]
		}
	}
	return best
}

// Client calls crop.health.
type Client struct {
	http   *resty.Client
	apiKey string
	log    zerolog.Logger
}

// New builds a client from cfg.
func New(cfg config.CropHealthConfig, log zerolog.Logger) *Client {
	key := strings.TrimSpace(cfg.APIKey)
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Api-Key", key).
			SetHeader("Accept", "application/json"),
		apiKey: key,
		log:    log,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// Identify submits a photo for diagnosis. The image is validated before
// anything is sent.
func (c *Client) Identify(ctx context.Context, image []byte, at *Location) (*Identification, error) {
	tr := otel.Tracer("cropdoctor/Client")
	ctx, span := tr.Start(ctx, "Identify", trace.WithAttributes(attribute.Int("image.bytes", len(image))))
	defer span.End()

	if !c.Enabled() {
		return nil, ErrDisabled
	}
	img, err := storage.ValidateImage(image)
	if err != nil {
		return nil, err
	}
	if at != nil && (at.Lat < -90 || at.Lat > 90 || at.Lon < -180 || at.Lon > 180) {
		return nil, ErrInvalidInput
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"details": detailFields, "language": "en"}).
		SetFileReader("images", "photo"+img.Extension, bytes.NewReader(image)).
		SetFormData(map[string]string{"similar_images": "true"})
	if at != nil {
		req.SetFormData(map[string]string{
			"latitude":  strconv.FormatFloat(at.Lat, 'f', -1, 64),
			"longitude": strconv.FormatFloat(at.Lon, 'f', -1, 64),
		})
	}

	var raw rawIdentification
	resp, err := req.SetResult(&raw).Post("/identification")
	if err = upstreamErr(ctx, resp, err); err != nil {
		return nil, err
	}
	out := raw.identification()
	span.SetAttributes(attribute.String("identification.status", out.Status))
	c.log.Debug().Str("token", out.AccessToken).Int("diseases", len(out.Diseases)).Msg("crop identification submitted")
	return out, nil
}

// Get fetches a previous identification.
func (c *Client) Get(ctx context.Context, token string) (*Identification, error) {
	tr := otel.Tracer("cropdoctor/Client")
	ctx, span := tr.Start(ctx, "Get")
	defer span.End()

	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidInput
	}
	var raw rawIdentification
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("token", token).
		SetQueryParams(map[string]string{"details": detailFields, "language": "en"}).
		SetResult(&raw).
		Get("/identification/{token}")
	if err = upstreamErr(ctx, resp, err); err != nil {
		return nil, err
	}
	return raw.identification(), nil
}

// Feedback rates an identification. rating is 0 (unset) or 1..10; at least
// one of comment and rating is required.
func (c *Client) Feedback(ctx context.Context, token, comment string, rating int) error {
	tr := otel.Tracer("cropdoctor/Client")
	ctx, span := tr.Start(ctx, "Feedback", trace.WithAttributes(attribute.Int("rating", rating)))
	defer span.End()

	if !c.Enabled() {
		return ErrDisabled
	}
	comment = strings.TrimSpace(comment)
	if strings.TrimSpace(token) == "" || rating < 0 || rating > 10 || (comment == "" && rating == 0) {
		return ErrInvalidInput
	}
	body := map[string]any{}
	if comment != "" {
		body["comment"] = comment
	}
	if rating > 0 {
		body["rating"] = rating
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("token", token).
		SetBody(body).
		Post("/identification/{token}/feedback")
	return upstreamErr(ctx, resp, err)
}

func upstreamErr(ctx context.Context, resp *resty.Response, err error) error {
	return observability.SpanError(trace.SpanFromContext(ctx), classify(resp, err))
}

func classify(resp *resty.Response, err error) error {
	if err != nil {
		observability.ObserveExternal(provider, err)
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if resp.StatusCode() == 404 {
		observability.ObserveExternal(provider, nil)
		return ErrNotFound
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > 200 {
			body = body[:200]
		}
		err = fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode(), body)
		observability.ObserveExternal(provider, err)
		return err
	}
	observability.ObserveExternal(provider, nil)
	return nil
}
