package booking

import "context"

type Service interface {
	// GetByID returns the booking if the requester is its customer, its vendor or an admin.
	GetByID(ctx context.Context, id, requesterID string, isAdmin bool) (*Booking, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id, requesterID string, isAdmin bool) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.VisibleTo(requesterID, isAdmin) {
		// Hide existence from strangers.
		return nil, ErrNotFound
	}
	return b, nil
}
