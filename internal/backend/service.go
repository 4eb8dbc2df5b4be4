package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PassportSoftware/paylink/internal/invoicesvc"
	"github.com/PassportSoftware/paylink/internal/models"
)

// LocalService implements invoicesvc.Service directly against the store,
// skipping HTTP. The portal runs against it in development and tests; the
// HTTP client against a deployed backend is the other integration of the
// same interface.
type LocalService struct {
	db *gorm.DB
}

func NewLocalService(db *gorm.DB) *LocalService {
	return &LocalService{db: db}
}

func (s *LocalService) load(id, pin string) (*InvoiceRecord, error) {
	var rec InvoiceRecord
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicesvc.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", invoicesvc.ErrBackend, err)
	}
	if !rec.PINMatches(pin) {
		return nil, invoicesvc.ErrInvalidPIN
	}
	return &rec, nil
}

func (s *LocalService) GetInvoice(_ context.Context, id, pin string) (*models.Invoice, error) {
	rec, err := s.load(id, pin)
	if err != nil {
		return nil, err
	}
	return rec.toDTO().ToModel()
}

func (s *LocalService) UpdateInvoice(_ context.Context, id string, patch invoicesvc.UpdatePatch) (*invoicesvc.UpdateResult, error) {
	rec, err := s.load(id, patch.PIN)
	if err != nil {
		return nil, err
	}
	rec.applyPayment(patch.PaymentMethod, patch.PaymentDate, patch.Status, uuid.NewString)
	if err := s.db.Save(rec).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", invoicesvc.ErrBackend, err)
	}
	dto := rec.toDTO()
	inv, err := dto.ToModel()
	if err != nil {
		return nil, err
	}
	return &invoicesvc.UpdateResult{Invoice: *inv, ControlNumber: dto.ControlNumber}, nil
}
