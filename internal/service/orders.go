package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/boddenberg/logistica-web-go/internal/advisor"
	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/infra/observability"
	"github.com/boddenberg/logistica-web-go/internal/infra/resilience"
	"github.com/boddenberg/logistica-web-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/orders")

const (
	ordersPath      = "/logistics/pedidos/"
	ordersAdminPath = "/logistics/pedidos-admin/"
	splitPath       = "/logistics/pedidos-admin/dividir/"
)

// OrderService lists and registers delivery orders.
type OrderService struct {
	backend port.Backend
	fanOut  resilience.Config
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewOrderService creates the order service. fanOut caps the detail
// requests in flight within a single List call; calls never share slots.
func NewOrderService(backend port.Backend, fanOut resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *OrderService {
	return &OrderService{
		backend: backend,
		fanOut:  fanOut,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateResult is the outcome of registering an order. Exactly one of the
// fields is set: the created order, a split suggestion for an
// incompatible-families rejection, or the message of any other rejection.
type CreateResult struct {
	Order      *domain.Order
	Suggestion *domain.SplitSuggestion
	Rejection  string
}

// ============================================================
// List — GET /pedidos
// ============================================================

// List loads the order list and fills in the items of orders the list
// endpoint returned without them. Detail calls run concurrently and are
// merged back by order id.
func (s *OrderService) List(ctx context.Context, sess *domain.Session) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.List")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordPageDuration("pedidos", time.Since(start))
	}()

	var page domain.Page[domain.Order]
	if err := s.backend.GetJSON(ctx, sess, ordersPath, nil, &page); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := page.Results

	var missing []int
	for _, o := range orders {
		if len(o.Items) == 0 {
			missing = append(missing, o.ID)
		}
	}
	span.SetAttributes(
		attribute.Int("orders.count", len(orders)),
		attribute.Int("orders.missing_items", len(missing)),
	)
	if len(missing) == 0 {
		return orders, nil
	}

	var (
		mu      sync.Mutex
		details = make(map[int][]domain.OrderItem, len(missing))
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut.FanOutLimit())
	for _, id := range missing {
		g.Go(func() error {
			var full domain.Order
			if err := s.backend.GetJSON(gCtx, sess, ordersPath+strconv.Itoa(id)+"/", nil, &full); err != nil {
				s.logger.Error("failed to fetch order detail",
					zap.Int("order_id", id),
					zap.Error(err),
				)
				return fmt.Errorf("order %d detail: %w", id, err)
			}

			mu.Lock()
			details[id] = full.Items
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range orders {
		if items, ok := details[orders[i].ID]; ok {
			orders[i].Items = items
		}
	}
	return orders, nil
}

// ============================================================
// Create — POST /pedidos/novo
// ============================================================

// Create registers draft. A 400 from the backend is not an error here: it is
// read by the advisor and returned as a suggestion or rejection message.
func (s *OrderService) Create(ctx context.Context, sess *domain.Session, draft *domain.OrderDraft) (*CreateResult, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Create")
	defer span.End()

	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var created domain.Order
	err := s.backend.SendJSON(ctx, sess, http.MethodPost, ordersAdminPath, draft, &created)
	if err == nil {
		s.logger.Info("order created", zap.Int("order_id", created.ID))
		return &CreateResult{Order: &created}, nil
	}

	var upstream *domain.ErrUpstream
	if !errors.As(err, &upstream) || upstream.Status != http.StatusBadRequest {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if suggestion := advisor.Inspect(upstream.Body); suggestion != nil {
		s.metrics.IncrSplitSuggestion()
		span.SetAttributes(attribute.Int("split.groups", len(suggestion.Groups)))
		s.logger.Info("order rejected with split suggestion",
			zap.Int("groups", len(suggestion.Groups)),
			zap.Strings("conflicts", suggestion.Conflicts),
		)
		return &CreateResult{Suggestion: suggestion}, nil
	}
	return &CreateResult{Rejection: advisor.Message(upstream.Body)}, nil
}

// ============================================================
// Split — POST /pedidos/dividir
// ============================================================

// Split asks the backend to register draft as several compatible orders.
func (s *OrderService) Split(ctx context.Context, sess *domain.Session, draft *domain.OrderDraft) (*domain.SplitOutcome, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Split")
	defer span.End()

	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var out domain.SplitOutcome
	if err := s.backend.SendJSON(ctx, sess, http.MethodPost, splitPath, draft, &out); err != nil {
		return nil, fmt.Errorf("split order: %w", err)
	}
	span.SetAttributes(attribute.Int("split.orders", len(out.Orders)))
	s.logger.Info("order split", zap.Int("orders", len(out.Orders)))
	return &out, nil
}
