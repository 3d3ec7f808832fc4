package entitlements

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/seekersapp2013/ambrosia/app/models"
	"github.com/seekersapp2013/ambrosia/app/repository"
)

type metaMap map[string]*repository.ContentMeta

func (m metaMap) GetMeta(contentType string, contentID uint) (*repository.ContentMeta, error) {
	if meta, ok := m[fmt.Sprintf("%s/%d", contentType, contentID)]; ok {
		return meta, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type paymentMap map[string]*models.Payment

func (m paymentMap) GetByPayerAndContent(payerID uint, contentType string, contentID uint) (*models.Payment, error) {
	if p, ok := m[fmt.Sprintf("%d/%s/%d", payerID, contentType, contentID)]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func TestHasAccessAuthor(t *testing.T) {
	eval := NewEvaluator(metaMap{
		"article/1": {AuthorID: 1, IsGated: true, PriceToken: "USDC", PriceAmount: 5},
	}, paymentMap{})

	ok, err := eval.HasAccess(1, models.ContentTypeArticle, 1)
	require.NoError(t, err)
	assert.True(t, ok, "authors always see their own content")
}

func TestHasAccessUngated(t *testing.T) {
	eval := NewEvaluator(metaMap{
		"reel/2": {AuthorID: 1, IsGated: false},
	}, paymentMap{})

	ok, err := eval.HasAccess(7, models.ContentTypeReel, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasAccessMissingContent(t *testing.T) {
	eval := NewEvaluator(metaMap{}, paymentMap{})

	ok, err := eval.HasAccess(7, models.ContentTypeArticle, 99)
	require.NoError(t, err)
	assert.False(t, ok, "missing content is no access, not an error")
}

func TestHasAccessRequiresMatchingPayment(t *testing.T) {
	meta := metaMap{
		"liveStream/3": {AuthorID: 1, IsGated: true, PriceToken: "USDC", PriceAmount: 5},
	}

	eval := NewEvaluator(meta, paymentMap{})
	ok, err := eval.HasAccess(7, models.ContentTypeLiveStream, 3)
	require.NoError(t, err)
	assert.False(t, ok, "no payment, no access")

	eval = NewEvaluator(meta, paymentMap{
		"7/liveStream/3": {PayerID: 7, Token: "USDC", Amount: 5},
	})
	ok, err = eval.HasAccess(7, models.ContentTypeLiveStream, 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasAccessPriceChangeInvalidatesOldPayment(t *testing.T) {
	eval := NewEvaluator(metaMap{
		"article/1": {AuthorID: 1, IsGated: true, PriceToken: "USDC", PriceAmount: 10},
	}, paymentMap{
		"7/article/1": {PayerID: 7, Token: "USDC", Amount: 5},
	})

	ok, err := eval.HasAccess(7, models.ContentTypeArticle, 1)
	require.NoError(t, err)
	assert.False(t, ok, "payment at the old price no longer counts")
}

func TestHasAccessTokenChangeInvalidatesOldPayment(t *testing.T) {
	eval := NewEvaluator(metaMap{
		"article/1": {AuthorID: 1, IsGated: true, PriceToken: "ETH", PriceAmount: 5},
	}, paymentMap{
		"7/article/1": {PayerID: 7, Token: "USDC", Amount: 5},
	})

	ok, err := eval.HasAccess(7, models.ContentTypeArticle, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
