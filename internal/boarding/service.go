// Package boarding issues boarding passes for allocated requests after a
// completed allocation run.
package boarding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	boardingdb "ms-shuttle/internal/boarding/db"
	"ms-shuttle/internal/boarding/qr"
	"ms-shuttle/internal/logger"
	"ms-shuttle/internal/models"
)

type DBLayer interface {
	AllocatedRequests(ctx context.Context, date string) ([]boardingdb.AllocatedRow, error)
	CreatePass(ctx context.Context, pass models.BoardingPass) error
	GetPassByRequest(ctx context.Context, requestID string) (*models.BoardingPass, error)
	HasPass(ctx context.Context, requestID string) (bool, error)
}

type Service struct {
	DB     DBLayer
	QR     *qr.QRGenerator
	Logger *logger.Logger
}

func NewService(db DBLayer, qrGen *qr.QRGenerator, log *logger.Logger) *Service {
	return &Service{DB: db, QR: qrGen, Logger: log}
}

// IssuePasses creates one boarding pass per allocated request for the date.
// Requests that already have a pass are skipped, so the call is safe to
// repeat after a partial failure. Returns the number issued.
func (s *Service) IssuePasses(ctx context.Context, date string) (int, error) {
	rows, err := s.DB.AllocatedRequests(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("load allocated requests: %w", err)
	}

	issued := 0
	for _, row := range rows {
		req := row.Request
		exists, err := s.DB.HasPass(ctx, req.ID)
		if err != nil {
			return issued, err
		}
		if exists {
			continue
		}

		pass := models.BoardingPass{
			ID:          uuid.NewString(),
			RequestID:   req.ID,
			UserID:      req.UserID,
			ServiceDate: req.ServiceDate,
			SeatLabel:   row.SeatLabel,
			IssuedAt:    time.Now().UTC(),
		}
		if req.AllocatedBusID != nil {
			pass.BusID = *req.AllocatedBusID
		}
		if req.AllocatedSeatID != nil {
			pass.SeatID = *req.AllocatedSeatID
		}

		qrBytes, err := s.QR.GenerateEncryptedQR(pass)
		if err != nil {
			return issued, fmt.Errorf("generate QR for request %s: %w", req.ID, err)
		}
		pass.QRCode = qrBytes

		if err := s.DB.CreatePass(ctx, pass); err != nil {
			return issued, fmt.Errorf("store pass for request %s: %w", req.ID, err)
		}
		issued++
	}

	s.Logger.LogProcess("BOARDING", fmt.Sprintf("issued %d passes for %s", issued, date))
	return issued, nil
}

// GetPass returns the boarding pass for a request.
func (s *Service) GetPass(ctx context.Context, requestID string) (*models.BoardingPass, error) {
	return s.DB.GetPassByRequest(ctx, requestID)
}
