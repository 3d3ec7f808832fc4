package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seekersapp2013/ambrosia/app/models"
)

type gormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a payment repository backed by GORM.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepository{db: db}
}

// CreateIfNotExists relies on the unique (payer, content type, content id)
// index: under concurrent purchases exactly one insert wins and the loser
// sees RowsAffected == 0.
func (r *gormPaymentRepository) CreateIfNotExists(payment *models.Payment) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "payer_id"},
			{Name: "content_type"},
			{Name: "content_id"},
		},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, tx.Error
	}

	created := tx.RowsAffected > 0
	if !created {
		// Populate the struct with the stored row for the caller.
		if err := r.db.Where("payer_id = ? AND content_type = ? AND content_id = ?",
			payment.PayerID, payment.ContentType, payment.ContentID).
			First(payment).Error; err != nil {
			return false, err
		}
	}
	return created, nil
}

func (r *gormPaymentRepository) GetByPayerAndContent(payerID uint, contentType string, contentID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("payer_id = ? AND content_type = ? AND content_id = ?", payerID, contentType, contentID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepository) ListByPayer(payerID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("payer_id = ?", payerID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// ListForAuthor returns payments received for any content owned by the
// author, newest first.
func (r *gormPaymentRepository) ListForAuthor(authorID uint, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Raw(`
		SELECT p.* FROM payments p
		WHERE (p.content_type = ? AND p.content_id IN (SELECT id FROM articles WHERE author_id = ?))
		   OR (p.content_type = ? AND p.content_id IN (SELECT id FROM reels WHERE author_id = ?))
		   OR (p.content_type = ? AND p.content_id IN (SELECT id FROM live_streams WHERE author_id = ?))
		ORDER BY p.created_at DESC
		LIMIT ?`,
		models.ContentTypeArticle, authorID,
		models.ContentTypeReel, authorID,
		models.ContentTypeLiveStream, authorID,
		limit,
	).Scan(&payments).Error
	return payments, err
}

// SumEarningsForAuthor aggregates received amounts per payment token.
func (r *gormPaymentRepository) SumEarningsForAuthor(authorID uint) (map[string]float64, int64, error) {
	type row struct {
		Token string
		Total float64
		Count int64
	}
	var rows []row
	err := r.db.Raw(`
		SELECT p.token AS token, SUM(p.amount) AS total, COUNT(*) AS count FROM payments p
		WHERE (p.content_type = ? AND p.content_id IN (SELECT id FROM articles WHERE author_id = ?))
		   OR (p.content_type = ? AND p.content_id IN (SELECT id FROM reels WHERE author_id = ?))
		   OR (p.content_type = ? AND p.content_id IN (SELECT id FROM live_streams WHERE author_id = ?))
		GROUP BY p.token`,
		models.ContentTypeArticle, authorID,
		models.ContentTypeReel, authorID,
		models.ContentTypeLiveStream, authorID,
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	earnings := make(map[string]float64, len(rows))
	var total int64
	for _, r := range rows {
		earnings[r.Token] = r.Total
		total += r.Count
	}
	return earnings, total, nil
}
