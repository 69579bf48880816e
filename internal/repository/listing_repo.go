package repository

import (
	"KoraChat/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListingRepo 房源与咨询投影
type ListingRepo interface {
	GetListing(ctx context.Context, id uint64) (*model.Listing, error)
	GetListingByIds(ctx context.Context, ids []uint64) ([]*model.Listing, error)
	UpsertListing(ctx context.Context, listing *model.Listing) error
	GetInquiry(ctx context.Context, id uint64) (*model.Inquiry, error)
	GetInquiryByReference(ctx context.Context, reference string) (*model.Inquiry, error)
	UpsertInquiry(ctx context.Context, inquiry *model.Inquiry) error
}

type listingRepoImpl struct {
	db *gorm.DB
}

func NewListingRepo(db *gorm.DB) ListingRepo {
	return &listingRepoImpl{db: db}
}

func (s *listingRepoImpl) GetListing(ctx context.Context, id uint64) (*model.Listing, error) {
	var listing model.Listing
	err := s.db.WithContext(ctx).Where("is_deleted = ?", false).First(&listing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *listingRepoImpl) GetListingByIds(ctx context.Context, ids []uint64) ([]*model.Listing, error) {
	listings := make([]*model.Listing, 0)
	if len(ids) == 0 {
		return listings, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&listings).Error
	return listings, err
}

func (s *listingRepoImpl) UpsertListing(ctx context.Context, listing *model.Listing) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(listing).Error
}

func (s *listingRepoImpl) GetInquiry(ctx context.Context, id uint64) (*model.Inquiry, error) {
	var inquiry model.Inquiry
	err := s.db.WithContext(ctx).First(&inquiry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

// GetInquiryByReference 按对外编号查询咨询
func (s *listingRepoImpl) GetInquiryByReference(ctx context.Context, reference string) (*model.Inquiry, error) {
	var inquiry model.Inquiry
	err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&inquiry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (s *listingRepoImpl) UpsertInquiry(ctx context.Context, inquiry *model.Inquiry) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(inquiry).Error
}
