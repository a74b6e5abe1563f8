package service

import (
	"context"

	"github.com/shopadmin/internal/model"
)

type Dashboard struct {
	api API
}

func NewDashboard(api API) *Dashboard {
	return &Dashboard{api: api}
}

// Stats returns headline counts. Non-admin accounts get figures scoped
// to themselves.
func (s *Dashboard) Stats(ctx context.Context) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	if err := s.api.Get(ctx, "/dashboard/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
