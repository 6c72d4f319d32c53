// Package handlers exposes the Harvest Hub REST API.
//
// Handlers are transport-thin: they bind and validate input, call
// application services through the context-aware contracts below, and
// translate results into HTTP responses (including conditional and replayed
// responses). Every error leaves through fail() or failErr() so the envelope
// is uniform.
package handlers

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/anidigital/harvest-hub/internal/cropdoctor"
	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/http/middleware"
	"github.com/anidigital/harvest-hub/internal/repo"
	"github.com/anidigital/harvest-hub/internal/services"
	"github.com/anidigital/harvest-hub/internal/storage"
	"github.com/anidigital/harvest-hub/internal/weather"
)

//
// Service contracts (context-aware)
//

// ConversationService lists and opens conversations.
type ConversationService interface {
	Directory(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	Open(ctx context.Context, userID, otherID, ctxType, ctxID string) (*domain.Conversation, bool, error)
	Header(ctx context.Context, userID, conversationID string) (*domain.ConversationHeader, error)
}

// ThreadService reads and writes one conversation's messages.
type ThreadService interface {
	Messages(ctx context.Context, userID, conversationID string, after *time.Time) ([]domain.MessageView, error)
	MarkRead(ctx context.Context, userID, conversationID string) (int64, error)
	Orders(ctx context.Context, userID, conversationID string) ([]domain.OrderView, error)
	SendText(ctx context.Context, userID, conversationID, text string) (*domain.MessageView, error)
	SendImage(ctx context.Context, userID, conversationID string, data []byte, caption string) (*domain.MessageView, error)
}

// OrderService drives the in-chat order workflow.
type OrderService interface {
	Purchase(ctx context.Context, buyerID, productID string, quantity decimal.Decimal) (*services.PurchaseResult, error)
	Get(ctx context.Context, userID, orderID string) (*domain.OrderView, error)
	MarkPending(ctx context.Context, sellerID, orderID string) (*domain.OrderView, error)
	MarkPaid(ctx context.Context, sellerID, orderID string) (*domain.OrderView, error)
}

// PaymentService handles manual payment proofs.
type PaymentService interface {
	SubmitProof(ctx context.Context, buyerID, orderID string, data []byte) (*domain.PaymentProof, error)
	ListProofs(ctx context.Context, userID, orderID string) ([]domain.PaymentProof, error)
	Verify(ctx context.Context, sellerID, proofID string, status domain.ProofStatus, reason string) (*domain.PaymentProof, error)
}

// ProductService manages marketplace listings.
type ProductService interface {
	List(ctx context.Context, q services.ProductQuery) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, sellerID string, in services.ProductInput, image []byte) (*domain.Product, error)
	Update(ctx context.Context, sellerID, id string, in services.ProductUpdate) (*domain.Product, error)
	Delete(ctx context.Context, sellerID, id string) error
}

// ShopService manages storefronts.
type ShopService interface {
	List(ctx context.Context) ([]domain.Shop, error)
	Get(ctx context.Context, id string) (*services.ShopDetail, error)
	Mine(ctx context.Context, ownerID string) (*services.ShopDetail, error)
	Create(ctx context.Context, ownerID string, in services.ShopInput, banner []byte) (*domain.Shop, error)
	Update(ctx context.Context, ownerID, id string, in services.ShopInput, banner []byte) (*domain.Shop, error)
}

// LedgerService is the bookkeeping ledger.
type LedgerService interface {
	List(ctx context.Context, userID string, f repo.TransactionFilter) ([]domain.Transaction, error)
	Create(ctx context.Context, userID string, in services.TransactionInput) (*domain.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	Summary(ctx context.Context, userID string, year int) (*services.FinanceSummary, error)
	Statement(ctx context.Context, userID, from, to string) ([]byte, error)
}

// NotificationService is the per-user notification feed.
type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// ProfileService reads and saves user profiles.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Public(ctx context.Context, id string) (*domain.PublicProfile, error)
	Save(ctx context.Context, userID string, in services.ProfileInput) (*domain.Profile, error)
}

// WeatherClient is the weather advisory provider.
type WeatherClient interface {
	Enabled() bool
	Current(ctx context.Context, p weather.Point) (*weather.Conditions, error)
	Forecast(ctx context.Context, p weather.Point) ([]weather.Conditions, error)
	Daily(ctx context.Context, p weather.Point) ([]weather.DailyForecast, error)
	Polygons(ctx context.Context) ([]weather.Polygon, error)
	CreatePolygon(ctx context.Context, name, location string) (*weather.Polygon, error)
	DeletePolygon(ctx context.Context, id string) error
}

// CropDoctor is the crop diagnosis provider.
type CropDoctor interface {
	Enabled() bool
	Identify(ctx context.Context, image []byte, at *cropdoctor.Location) (*cropdoctor.Identification, error)
	Get(ctx context.Context, token string) (*cropdoctor.Identification, error)
	Feedback(ctx context.Context, token, comment string, rating int) error
}

// IdempotencyStore records which resource an Idempotency-Key produced.
type IdempotencyStore interface {
	// Lookup returns the stored resource id, or found=false.
	Lookup(ctx context.Context, userID, scope, key string) (resourceID string, found bool, err error)
	// Save records resourceID for (userID, scope, key).
	Save(ctx context.Context, userID, scope, key, resourceID string, status int) error
}

// Stats provides cheap fingerprints for conditional GETs. Either method may
// return "" to skip the ETag; MessagesETag does so for non-participants.
type Stats interface {
	MessagesETag(ctx context.Context, userID, conversationID string) (string, error)
	ProductsETag(ctx context.Context) (string, error)
}

//
// Handler wiring
//

// Deps lists the collaborators of Handlers. Idempotency and Stats are
// optional.
type Deps struct {
	Conversations ConversationService
	Threads       ThreadService
	Orders        OrderService
	Payments      PaymentService
	Products      ProductService
	Shops         ShopService
	Ledger        LedgerService
	Notifications NotificationService
	Profiles      ProfileService
	Weather       WeatherClient
	CropDoctor    CropDoctor
	Idempotency   IdempotencyStore
	Stats         Stats
}

// Handlers groups the API endpoints.
type Handlers struct {
	Deps
}

// New constructs Handlers bound to d.
func New(d Deps) *Handlers { return &Handlers{Deps: d} }

// userID returns the caller set by middleware.Authenticate.
func userID(c *gin.Context) string { return middleware.UserID(c) }

// maxUploadBytes is the largest accepted image part. Anything larger is
// rejected as file_too_large before a storage call is made.
const maxUploadBytes = storage.MaxImageBytes

// readUpload returns the bytes of multipart part field. A missing optional
// part yields (nil, nil).
func readUpload(c *gin.Context, field string, required bool) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, nil
		}
		return nil, services.ErrInvalidInput
	}
	return readPart(fh)
}

// readPart reads at most one byte more than the size limit so oversized
// parts are detected without buffering them whole.
func readPart(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxUploadBytes {
		return nil, storage.ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadBytes {
		return nil, storage.ErrFileTooLarge
	}
	return data, nil
}

// shortHash fingerprints s for use inside an ETag.
func shortHash(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}
