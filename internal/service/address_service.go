package service

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// addressService implements AddressService.
type addressService struct {
	tx          repository.Transactor
	addressRepo repository.AddressRepository
	userRepo    repository.UserRepository
	logger      zerolog.Logger
}

// NewAddressService creates a new address service.
func NewAddressService(
	tx repository.Transactor,
	addressRepo repository.AddressRepository,
	userRepo repository.UserRepository,
	logger zerolog.Logger,
) AddressService {
	return &addressService{
		tx:          tx,
		addressRepo: addressRepo,
		userRepo:    userRepo,
		logger:      logger.With().Str("service", "address").Logger(),
	}
}

func (s *addressService) Add(ctx context.Context, userID int64, req *model.AddressRequest) (*model.Address, error) {
	if req == nil {
		return nil, model.ValidationErrors{"body": "is required"}.Err()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ensureUser(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}

	address := req.ToAddress(userID)
	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to add address: %w", err)
	}

	s.logger.Debug().Int64("user_id", userID).Int64("address_id", address.ID).Msg("address added")
	return address, nil
}

func (s *addressService) List(ctx context.Context, userID int64) ([]model.Address, error) {
	addresses, err := s.addressRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}

// Delete hard-deletes an unused address. Addresses referenced by orders are
// only deactivated so order history keeps its shipping details.
func (s *addressService) Delete(ctx context.Context, userID, addressID int64) error {
	soft := false

	err := withTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		address, err := s.addressRepo.LockByID(ctx, tx, addressID)
		if err != nil {
			return err
		}
		if address == nil || !address.Active {
			return model.NotFound("address", addressID)
		}
		if address.UserID != userID {
			return model.Forbidden("address", addressID, "you can only delete your own addresses")
		}

		referenced, err := s.addressRepo.HasOrders(ctx, tx, addressID)
		if err != nil {
			return err
		}
		if referenced {
			soft = true
			return s.addressRepo.Deactivate(ctx, tx, addressID)
		}
		return s.addressRepo.Delete(ctx, tx, addressID)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int64("address_id", addressID).
		Bool("soft_delete", soft).
		Msg("address deleted")

	return nil
}
