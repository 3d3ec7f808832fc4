package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/seekersapp2013/ambrosia/app/models"
	"github.com/seekersapp2013/ambrosia/app/repository"
)

var (
	// ErrContentNotFound is returned when the purchased content does not exist.
	ErrContentNotFound = errors.New("content not found")
	// ErrNotGated is returned when attempting to purchase free content.
	ErrNotGated = errors.New("content is not gated")
	// ErrPaymentMismatch is returned when the submitted token or amount does
	// not match the content's current price.
	ErrPaymentMismatch = errors.New("payment amount mismatch")
	// ErrAlreadyPurchased is returned for a duplicate purchase of the same
	// content by the same payer.
	ErrAlreadyPurchased = errors.New("content already purchased")
)

// PurchaseInput carries a client-submitted purchase. The transaction hash is
// recorded as-is; validating it against the chain is an external trust
// boundary, not something this ledger does.
type PurchaseInput struct {
	ContentType string  `json:"content_type" validate:"required,oneof=article reel liveStream"`
	ContentID   uint    `json:"content_id" validate:"required"`
	PriceToken  string  `json:"price_token" validate:"required"`
	PriceAmount float64 `json:"price_amount" validate:"required,gt=0"`
	TxHash      string  `json:"tx_hash" validate:"required"`
	Network     string  `json:"network" validate:"required"`
}

// Validate checks the input against its struct tags.
func (in *PurchaseInput) Validate() error {
	v := validator.New()

	return v.Struct(in)
}

// Earnings summarizes what a creator has been paid, per token.
type Earnings struct {
	TotalPayments  int64              `json:"total_payments"`
	ByToken        map[string]float64 `json:"earnings"`
	RecentPayments []models.Payment   `json:"recent_payments"`
}

// Service is the append-only payment ledger. Rows are never mutated after
// insert; duplicate purchases are rejected at the unique index so exactly
// one of two concurrent purchases wins.
type Service struct {
	contents      repository.ContentRepository
	payments      repository.PaymentRepository
	notifications repository.NotificationRepository
}

// NewService creates a payment service from injected repositories.
func NewService(contents repository.ContentRepository, payments repository.PaymentRepository, notifications repository.NotificationRepository) *Service {
	return &Service{contents: contents, payments: payments, notifications: notifications}
}

// NewServiceFromDB creates a payment service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(
		repository.NewContentRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewNotificationRepository(db),
	)
}

// Purchase verifies the submitted price against the content's current price
// fields and appends the payment. The content author is notified unless they
// bought their own content.
func (s *Service) Purchase(ctx context.Context, payerID uint, in PurchaseInput) (*models.Payment, error) {
	_ = ctx
	if err := in.Validate(); err != nil {
		return nil, err
	}

	meta, err := s.contents.GetMeta(in.ContentType, in.ContentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}
	if !meta.IsGated {
		return nil, ErrNotGated
	}
	if meta.PriceToken != in.PriceToken || meta.PriceAmount != in.PriceAmount {
		return nil, ErrPaymentMismatch
	}

	payment := &models.Payment{
		PayerID:     payerID,
		ContentType: in.ContentType,
		ContentID:   in.ContentID,
		Token:       in.PriceToken,
		Amount:      in.PriceAmount,
		Network:     in.Network,
		TxHash:      in.TxHash,
	}
	created, err := s.payments.CreateIfNotExists(payment)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyPurchased
	}

	if meta.AuthorID != payerID {
		notification := &models.Notification{
			UserID:      meta.AuthorID,
			Type:        models.NotificationTypeContentPayment,
			Content:     fmt.Sprintf("Your %s was purchased for %g %s", in.ContentType, in.PriceAmount, in.PriceToken),
			ActorUserID: payerID,
			ContentType: in.ContentType,
			ReferenceID: in.ContentID,
		}
		if err := s.notifications.Create(notification); err != nil {
			log.Errorf("[Payments] Failed to notify author %d about payment %d: %v", meta.AuthorID, payment.ID, err)
		}
	}

	return payment, nil
}

// ListPurchases returns the payer's purchase history, newest first.
func (s *Service) ListPurchases(payerID uint) ([]models.Payment, error) {
	return s.payments.ListByPayer(payerID)
}

// CreatorEarnings aggregates a creator's received payments per token.
func (s *Service) CreatorEarnings(authorID uint) (*Earnings, error) {
	byToken, total, err := s.payments.SumEarningsForAuthor(authorID)
	if err != nil {
		return nil, err
	}
	recent, err := s.payments.ListForAuthor(authorID, 10)
	if err != nil {
		return nil, err
	}
	return &Earnings{
		TotalPayments:  total,
		ByToken:        byToken,
		RecentPayments: recent,
	}, nil
}
