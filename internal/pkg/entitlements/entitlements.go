package entitlements

import (
	"errors"

	"gorm.io/gorm"

	"github.com/seekersapp2013/ambrosia/app/models"
	"github.com/seekersapp2013/ambrosia/app/repository"
)

// ContentReader resolves gating metadata for a piece of content.
type ContentReader interface {
	GetMeta(contentType string, contentID uint) (*repository.ContentMeta, error)
}

// PaymentReader looks up a purchase in the payment ledger.
type PaymentReader interface {
	GetByPayerAndContent(payerID uint, contentType string, contentID uint) (*models.Payment, error)
}

// Evaluator decides whether a principal may access gated content. It must be
// consulted at token-issuance time, not only when the UI renders a paywall:
// gating or price can change between the optimistic client read and the join.
type Evaluator struct {
	contents ContentReader
	payments PaymentReader
}

// NewEvaluator creates an evaluator over the given readers.
func NewEvaluator(contents ContentReader, payments PaymentReader) *Evaluator {
	return &Evaluator{contents: contents, payments: payments}
}

// HasAccess returns true when the user owns the content, the content is not
// gated, or a payment matching the content's current price exists. Missing
// content resolves to "no access" rather than an error.
func (e *Evaluator) HasAccess(userID uint, contentType string, contentID uint) (bool, error) {
	meta, err := e.contents.GetMeta(contentType, contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if meta.AuthorID == userID {
		return true, nil
	}
	if !meta.IsGated {
		return true, nil
	}

	payment, err := e.payments.GetByPayerAndContent(userID, contentType, contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	// A stale purchase at an old price does not unlock the current price.
	return payment.Token == meta.PriceToken && payment.Amount == meta.PriceAmount, nil
}
