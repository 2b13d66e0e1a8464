package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/invoice/domain"
)

const ownerCacheTTL = 5 * time.Minute

// ResolveOwner resolves the owning organization for an invoice or payment.
// An explicit organization wins, but when a job or bid reference is also
// supplied the derived chain must agree with it. Without an explicit
// organization the chain job -> bid -> organization is followed.
func (s *Service) ResolveOwner(ctx context.Context, jobID, bidID, orgID snowflake.ID) (domain.Owner, error) {
	derived, err := s.deriveOwner(ctx, jobID, bidID)
	if err != nil {
		return domain.Owner{}, err
	}

	if orgID != 0 {
		if derived != nil {
			if derived.OrgID != orgID {
				return domain.Owner{}, domain.ErrInvalidOwner
			}
			return *derived, nil
		}
		return domain.Owner{OrgID: orgID}, nil
	}

	if derived == nil {
		return domain.Owner{}, domain.ErrMissingOwnerReference
	}
	return *derived, nil
}

func (s *Service) deriveOwner(ctx context.Context, jobID, bidID snowflake.ID) (*domain.Owner, error) {
	switch {
	case jobID != 0:
		return s.cachedOwner(ctx, fmt.Sprintf("job:%d", jobID), func() (*domain.Owner, error) {
			return s.repo.FindJobOwner(ctx, s.db, jobID)
		})
	case bidID != 0:
		return s.cachedOwner(ctx, fmt.Sprintf("bid:%d", bidID), func() (*domain.Owner, error) {
			return s.repo.FindBidOwner(ctx, s.db, bidID)
		})
	default:
		return nil, nil
	}
}

func (s *Service) cachedOwner(_ context.Context, key string, load func() (*domain.Owner, error)) (*domain.Owner, error) {
	if owner, ok := s.ownerCache.Get(key); ok {
		return &owner, nil
	}
	owner, err := load()
	if err != nil {
		return nil, err
	}
	s.ownerCache.Set(key, *owner, ownerCacheTTL)
	return owner, nil
}
