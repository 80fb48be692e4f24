package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/infra/observability"
	"github.com/boddenberg/logistica-web-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	routesPath  = "/logistics/rotas/"
	routesLimit = "500"
	recentCount = 5
)

// DashboardService builds the home screen summary.
type DashboardService struct {
	backend port.Backend
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDashboardService creates the dashboard service.
func NewDashboardService(backend port.Backend, metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		backend: backend,
		metrics: metrics,
		logger:  logger,
	}
}

// Summary loads routes and orders concurrently and aggregates them.
func (s *DashboardService) Summary(ctx context.Context, sess *domain.Session) (*domain.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.Summary")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordPageDuration("inicio", time.Since(start))
	}()

	var (
		routes domain.Page[domain.Route]
		orders domain.Page[domain.Order]
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.backend.GetJSON(gCtx, sess, routesPath, url.Values{"limit": {routesLimit}}, &routes); err != nil {
			s.logger.Error("failed to fetch routes", zap.Error(err))
			return fmt.Errorf("routes fetch: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.backend.GetJSON(gCtx, sess, ordersPath, nil, &orders); err != nil {
			s.logger.Error("failed to fetch orders", zap.Error(err))
			return fmt.Errorf("orders fetch: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Summarize(routes.Results, orders.Results), nil
}

// Summarize aggregates route and order lists into a Dashboard.
func Summarize(routes []domain.Route, orders []domain.Order) *domain.Dashboard {
	d := &domain.Dashboard{
		RoutesByStatus: map[domain.RouteStatus]int{
			domain.RoutePlanned:    0,
			domain.RouteInProgress: 0,
			domain.RouteDone:       0,
		},
		TotalRoutes: len(routes),
		TotalOrders: len(orders),
	}

	for _, r := range routes {
		d.RoutesByStatus[r.Status]++
		if r.Status != domain.RouteDone {
			d.CapacityKg += float64(r.Capacity)
			d.LoadedKg += float64(r.WeightKg)
		}
	}
	for i := range orders {
		if orders[i].DeliveryStatus() == domain.DeliveryPending {
			d.PendingOrders++
		}
	}

	recent := make([]domain.Route, len(routes))
	copy(recent, routes)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].ID > recent[j].ID })
	if len(recent) > recentCount {
		recent = recent[:recentCount]
	}
	d.Recent = recent
	return d
}
