package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/seekersapp2013/ambrosia/app/models"
)

type gormContentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a content repository backed by GORM.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &gormContentRepository{db: db}
}

// GetMeta resolves the gating metadata for any purchasable content type.
func (r *gormContentRepository) GetMeta(contentType string, contentID uint) (*ContentMeta, error) {
	switch contentType {
	case models.ContentTypeArticle:
		var article models.Article
		if err := r.db.First(&article, contentID).Error; err != nil {
			return nil, err
		}
		return &ContentMeta{
			AuthorID:      article.AuthorID,
			IsGated:       article.IsGated,
			PriceToken:    article.PriceToken,
			PriceAmount:   article.PriceAmount,
			SellerAddress: article.SellerAddress,
		}, nil
	case models.ContentTypeReel:
		var reel models.Reel
		if err := r.db.First(&reel, contentID).Error; err != nil {
			return nil, err
		}
		return &ContentMeta{
			AuthorID:      reel.AuthorID,
			IsGated:       reel.IsGated,
			PriceToken:    reel.PriceToken,
			PriceAmount:   reel.PriceAmount,
			SellerAddress: reel.SellerAddress,
		}, nil
	case models.ContentTypeLiveStream:
		var stream models.LiveStream
		if err := r.db.First(&stream, contentID).Error; err != nil {
			return nil, err
		}
		return &ContentMeta{
			AuthorID:      stream.AuthorID,
			IsGated:       stream.IsGated,
			PriceToken:    stream.PriceToken,
			PriceAmount:   stream.PriceAmount,
			SellerAddress: stream.SellerAddress,
		}, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", contentType)
	}
}

// CreateReelFromRecording publishes an archived stream as a reel, carrying
// the gating configuration over so existing purchases keep working.
func (r *gormContentRepository) CreateReelFromRecording(stream *models.LiveStream, recordingURL string) (*models.Reel, error) {
	reel := &models.Reel{
		AuthorID:      stream.AuthorID,
		Title:         stream.Title,
		VideoURL:      recordingURL,
		IsGated:       stream.IsGated,
		PriceToken:    stream.PriceToken,
		PriceAmount:   stream.PriceAmount,
		SellerAddress: stream.SellerAddress,
	}
	if err := r.db.Create(reel).Error; err != nil {
		return nil, err
	}
	return reel, nil
}
