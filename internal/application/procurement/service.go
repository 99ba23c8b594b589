package procurement

import (
	"context"
	"errors"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/erp/construction/internal/domain/inventory"
	"github.com/erp/construction/internal/domain/procurement"
	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/infrastructure/logger"
	"github.com/erp/construction/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseOrderService handles purchase order business operations
type PurchaseOrderService struct {
	repos   appshared.Repositories
	scope   appshared.TransactionScope
	logger  *zap.Logger
	metrics *telemetry.FinanceMetrics
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(repos appshared.Repositories, scope appshared.TransactionScope, log *zap.Logger) *PurchaseOrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PurchaseOrderService{
		repos:  repos,
		scope:  scope,
		logger: log.Named("procurement"),
	}
}

// SetFinanceMetrics sets the metrics collector
func (s *PurchaseOrderService) SetFinanceMetrics(m *telemetry.FinanceMetrics) {
	s.metrics = m
}

// Create creates a draft purchase order with its initial lines
func (s *PurchaseOrderService) Create(ctx context.Context, tenantID uuid.UUID, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	var order *procurement.PurchaseOrder
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		folio, err := repos.PurchaseOrders().NextFolio(ctx, tenantID)
		if err != nil {
			return err
		}
		order, err = procurement.NewPurchaseOrder(tenantID, folio, req.SupplierID, req.Notes)
		if err != nil {
			return err
		}
		for _, line := range req.Lines {
			if _, err := order.AddLine(line.ProductID, line.Description, line.Unit, line.Quantity, line.UnitPrice); err != nil {
				return err
			}
		}
		if req.CreatedBy != nil {
			order.SetCreatedBy(*req.CreatedBy)
		}
		return repos.PurchaseOrders().Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	appshared.FlushEvents(ctx, s.logger, order)
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// AddLine adds a product line to a draft order
func (s *PurchaseOrderService) AddLine(ctx context.Context, tenantID, orderID uuid.UUID, req PurchaseOrderLineRequest) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, tenantID, orderID, "add_line", func(o *procurement.PurchaseOrder, _ appshared.Repositories) error {
		_, err := o.AddLine(req.ProductID, req.Description, req.Unit, req.Quantity, req.UnitPrice)
		return err
	})
}

// Send issues a draft order to the supplier
func (s *PurchaseOrderService) Send(ctx context.Context, tenantID, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, tenantID, orderID, "send", func(o *procurement.PurchaseOrder, _ appshared.Repositories) error {
		return o.Send()
	})
}

// Cancel cancels a draft order
func (s *PurchaseOrderService) Cancel(ctx context.Context, tenantID, orderID uuid.UUID, req CancelPurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, tenantID, orderID, "cancel", func(o *procurement.PurchaseOrder, _ appshared.Repositories) error {
		return o.Cancel(req.Reason)
	})
}

// Receive records a goods receipt and increases stock for every received
// product in the same transaction. Either every item is applied or none is.
func (s *PurchaseOrderService) Receive(ctx context.Context, tenantID, orderID uuid.UUID, req ReceivePurchaseOrderRequest) (*ReceiveResultResponse, error) {
	items := make([]procurement.ReceiptItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = procurement.ReceiptItem{LineID: item.LineID, Quantity: item.Quantity}
	}

	var (
		movements []StockMovementResponse
		stock     []*inventory.StockItem
	)
	response, err := s.mutate(ctx, tenantID, orderID, "receive", func(o *procurement.PurchaseOrder, repos appshared.Repositories) error {
		moves, err := o.Receive(items)
		if err != nil {
			return err
		}
		stockService := inventory.NewStockService(repos.StockItems())
		movements = make([]StockMovementResponse, 0, len(moves))
		stock = make([]*inventory.StockItem, 0, len(moves))
		for _, m := range moves {
			item, err := stockService.IncreaseStock(ctx, tenantID, m.ProductID, m.Quantity, inventory.SourceTypePurchaseOrder, o.ID)
			if err != nil {
				return err
			}
			stock = append(stock, item)
			movements = append(movements, StockMovementResponse{
				ProductID:      m.ProductID,
				Quantity:       m.Quantity,
				QuantityOnHand: item.QuantityOnHand,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, item := range stock {
		appshared.FlushEvents(ctx, s.logger, item)
	}
	s.metrics.RecordGoodsReceipt(ctx, tenantID, response.Status)
	return &ReceiveResultResponse{
		Order:           *response,
		Movements:       movements,
		IsFullyReceived: response.Status == procurement.OrderStatusComplete.String(),
	}, nil
}

// GetByID retrieves a purchase order
func (s *PurchaseOrderService) GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.load(ctx, s.repos, tenantID, orderID, false)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// List retrieves purchase orders with filtering and pagination
func (s *PurchaseOrderService) List(ctx context.Context, tenantID uuid.UUID, filter PurchaseOrderListFilter) ([]PurchaseOrderResponse, int64, error) {
	domainFilter := appshared.ListFilter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}.ToDomain()
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.SupplierID != nil {
		domainFilter.Filters["supplier_id"] = *filter.SupplierID
	}

	orders, total, err := s.repos.PurchaseOrders().FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToPurchaseOrderResponses(orders), total, nil
}

// mutate locks the order, applies fn and saves with a version check
func (s *PurchaseOrderService) mutate(ctx context.Context, tenantID, orderID uuid.UUID, op string, fn func(*procurement.PurchaseOrder, appshared.Repositories) error) (_ *PurchaseOrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "procurement", op,
		telemetry.SpanAttrTenantID.String(tenantID.String()),
		telemetry.SpanAttrOrderID.String(orderID.String()),
	)
	defer telemetry.EndSpan(span, &err)

	var order *procurement.PurchaseOrder
	err = s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		order, err = s.load(ctx, repos, tenantID, orderID, true)
		if err != nil {
			return err
		}
		if err := fn(order, repos); err != nil {
			return err
		}
		return repos.PurchaseOrders().Save(ctx, order)
	})
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			s.metrics.RecordRejection(ctx, tenantID, op, de.Code)
		}
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("Purchase order updated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("purchase_order_id", order.ID.String()),
		zap.Int64("folio", order.Folio),
		zap.String("operation", op),
		zap.String("status", order.Status.String()),
	)
	appshared.FlushEvents(ctx, s.logger, order)
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

func (s *PurchaseOrderService) load(ctx context.Context, repos appshared.Repositories, tenantID, id uuid.UUID, forUpdate bool) (*procurement.PurchaseOrder, error) {
	var (
		o   *procurement.PurchaseOrder
		err error
	)
	if forUpdate {
		o, err = repos.PurchaseOrders().FindByIDForUpdate(ctx, id)
	} else {
		o, err = repos.PurchaseOrders().FindByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("purchase order")
		}
		return nil, err
	}
	if err := o.EnsureTenant(tenantID); err != nil {
		return nil, err
	}
	return o, nil
}
