package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/core/service"
	"github.com/rl1809/stock-ledger/internal/port"
)

const idempotencyHeader = "Idempotency-Key"

type HTTPHandler struct {
	catalog   *service.CatalogService
	ledger    *service.LedgerService
	transfers *service.TransferService
	requests  *service.RequestService
	monitor   *service.LowStockMonitor
	guard     port.IdempotencyGuard
	logger    *zap.Logger
}

type Services struct {
	Catalog   *service.CatalogService
	Ledger    *service.LedgerService
	Transfers *service.TransferService
	Requests  *service.RequestService
	Monitor   *service.LowStockMonitor
}

// NewHTTPHandler wires the services; guard may be nil to disable
// Idempotency-Key handling.
func NewHTTPHandler(svc Services, guard port.IdempotencyGuard, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		catalog:   svc.Catalog,
		ledger:    svc.Ledger,
		transfers: svc.Transfers,
		requests:  svc.Requests,
		monitor:   svc.Monitor,
		guard:     guard,
		logger:    logger,
	}
}

func (h *HTTPHandler) CreateItem(c *gin.Context) {
	var req CreateItemHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := h.catalog.CreateItem(c.Request.Context(), domain.NewItem{
		Name:              req.Name,
		Quantity:          req.Quantity,
		BatchNo:           req.BatchNo,
		ExpiryDate:        req.ExpiryDate,
		LowStockThreshold: req.LowStockThreshold,
		Location:          req.Location,
		Unit:              req.Unit,
		Category:          req.Category,
		CreatedBy:         req.CreatedBy,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *HTTPHandler) GetItem(c *gin.Context) {
	item, err := h.catalog.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(*item))
}

func (h *HTTPHandler) ListItems(c *gin.Context) {
	items, err := h.catalog.ListItems(c.Request.Context(), domain.ItemFilter{
		Location:   c.Query("location"),
		Category:   c.Query("category"),
		SearchTerm: c.Query("search"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) UpdateItem(c *gin.Context) {
	var req UpdateItemHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Quantity) > 0 || len(req.BatchNo) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity and batch_no change only through adjustments and transfers"})
		return
	}

	item, err := h.catalog.UpdateItem(c.Request.Context(), c.Param("id"), domain.ItemPatch{
		Name:              req.Name,
		LowStockThreshold: req.LowStockThreshold,
		Location:          req.Location,
		Unit:              req.Unit,
		Category:          req.Category,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(*item))
}

func (h *HTTPHandler) DeleteItem(c *gin.Context) {
	if err := h.catalog.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) LowStock(c *gin.Context) {
	low, err := h.monitor.Check(c.Request.Context(), c.Query("location"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]LowStockResponse, 0, len(low))
	for _, entry := range low {
		out = append(out, LowStockResponse{ItemResponse: toItemResponse(entry.Item), PercentageRemaining: entry.PercentageRemaining})
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) ApplyAdjustment(c *gin.Context) {
	var req AdjustmentHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	typ, err := domain.ParseAdjustmentType(req.Type)
	if err != nil {
		h.writeError(c, err)
		return
	}

	release, ok := h.claim(c)
	if !ok {
		return
	}

	result, err := h.ledger.ApplyAdjustment(c.Request.Context(), service.Adjustment{
		ItemID:    c.Param("id"),
		Amount:    req.Amount,
		Reason:    req.Reason,
		Type:      typ,
		ActorID:   req.ActorID,
		SubjectID: req.SubjectID,
	})
	if err != nil {
		release()
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AdjustmentResponse{
		Item:  toItemResponse(result.Item),
		Entry: toLogResponse(result.Entry, result.Item.Name, ""),
	})
}

func (h *HTTPHandler) GetLogs(c *gin.Context) {
	filter := domain.LogFilter{ItemID: c.Query("item_id")}
	if typ := c.Query("type"); typ != "" {
		t, err := domain.ParseAdjustmentType(typ)
		if err != nil {
			h.writeError(c, err)
			return
		}
		filter.Type = t
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		filter.Limit = n
	}

	views, err := h.ledger.GetLogs(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]LogResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toLogResponse(v.LogEntry, v.ItemName, v.ActorName))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) Transfer(c *gin.Context) {
	var req TransferHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	release, ok := h.claim(c)
	if !ok {
		return
	}

	result, err := h.transfers.Transfer(c.Request.Context(), service.Transfer{
		ItemID:       c.Param("id"),
		Amount:       req.Amount,
		FromLocation: req.FromLocation,
		ToLocation:   req.ToLocation,
		ActorID:      req.ActorID,
	})
	if err != nil {
		release()
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, TransferResponse{
		Source:             toItemResponse(result.Source),
		Destination:        toItemResponse(result.Destination),
		DestinationCreated: result.Created,
		Entry:              toLogResponse(result.Entry, result.Source.Name, ""),
	})
}

func (h *HTTPHandler) CreateRequest(c *gin.Context) {
	var req CreateRequestHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	lines := make([]domain.RequestLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, domain.RequestLine{ItemID: line.ItemID, QuantityRequested: line.Quantity, UnitOfMeasure: line.Unit})
	}

	id, err := h.requests.CreateRequest(c.Request.Context(), domain.NewRequest{
		RequestingUnit: req.RequestingUnit,
		RequestedBy:    req.RequestedBy,
		Lines:          lines,
		Notes:          req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "status": domain.RequestPending.String()})
}

func (h *HTTPHandler) GetRequest(c *gin.Context) {
	view, err := h.requests.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestViewResponse(*view))
}

func (h *HTTPHandler) ListRequests(c *gin.Context) {
	filter := domain.RequestFilter{RequestingUnit: c.Query("requesting_unit")}
	if status := c.Query("status"); status != "" {
		s, err := domain.ParseRequestStatus(status)
		if err != nil {
			h.writeError(c, err)
			return
		}
		filter.Status = s
	}

	views, err := h.requests.ListRequests(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]RequestResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toRequestViewResponse(v))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) ApproveRequest(c *gin.Context) {
	h.requestAction(c, h.requests.Approve)
}

func (h *HTTPHandler) RejectRequest(c *gin.Context) {
	h.requestAction(c, h.requests.Reject)
}

func (h *HTTPHandler) FulfillRequest(c *gin.Context) {
	release, ok := h.claim(c)
	if !ok {
		return
	}
	if !h.requestAction(c, h.requests.Fulfill) {
		release()
	}
}

// requestAction runs a status change and reports whether it succeeded.
func (h *HTTPHandler) requestAction(c *gin.Context, action func(ctx context.Context, id, actor string) (*domain.Request, error)) bool {
	var req ActionHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}

	updated, err := action(c.Request.Context(), c.Param("id"), req.Actor)
	if err != nil {
		h.writeError(c, err)
		return false
	}

	c.JSON(http.StatusOK, toRequestResponse(*updated))
	return true
}

// claim reserves the Idempotency-Key of a mutating call. The returned release
// frees the key again when the call fails.
func (h *HTTPHandler) claim(c *gin.Context) (func(), bool) {
	key := c.GetHeader(idempotencyHeader)
	if h.guard == nil || key == "" {
		return func() {}, true
	}

	scoped := c.Request.Method + " " + c.Request.URL.Path + ":" + key
	ok, err := h.guard.SetIdempotency(c.Request.Context(), scoped)
	if err != nil {
		h.logger.Error("idempotency check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	if !ok {
		h.writeError(c, domain.ErrDuplicateRequest)
		return nil, false
	}

	return func() {
		if err := h.guard.ReleaseIdempotency(c.Request.Context(), scoped); err != nil {
			h.logger.Warn("failed to release idempotency key", zap.String("key", scoped), zap.Error(err))
		}
	}, true
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrLocationMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrConcurrencyConflict),
		errors.Is(err, domain.ErrItemInUse),
		errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
