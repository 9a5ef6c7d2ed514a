package handler

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/core/service"
)

type CreateItemHTTPRequest struct {
	Name              string          `json:"name"`
	Quantity          decimal.Decimal `json:"quantity"`
	BatchNo           string          `json:"batch_no"`
	ExpiryDate        *time.Time      `json:"expiry_date"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	Location          string          `json:"location"`
	Unit              string          `json:"unit"`
	Category          string          `json:"category"`
	CreatedBy         string          `json:"created_by"`
}

// UpdateItemHTTPRequest accepts descriptive fields only. Quantity and
// BatchNo are decoded so that attempts to set them can be refused.
type UpdateItemHTTPRequest struct {
	Name              *string          `json:"name"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
	Location          *string          `json:"location"`
	Unit              *string          `json:"unit"`
	Category          *string          `json:"category"`
	Quantity          json.RawMessage  `json:"quantity"`
	BatchNo           json.RawMessage  `json:"batch_no"`
}

type AdjustmentHTTPRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Type      string          `json:"type"`
	ActorID   string          `json:"actor_id"`
	SubjectID string          `json:"subject_id"`
}

type TransferHTTPRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	FromLocation string          `json:"from_location"`
	ToLocation   string          `json:"to_location"`
	ActorID      string          `json:"actor_id"`
}

type RequestLineHTTP struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

type CreateRequestHTTPRequest struct {
	RequestingUnit string            `json:"requesting_unit"`
	RequestedBy    string            `json:"requested_by"`
	Lines          []RequestLineHTTP `json:"lines"`
	Notes          string            `json:"notes"`
}

type ActionHTTPRequest struct {
	Actor string `json:"actor"`
}

type ItemResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Quantity          decimal.Decimal `json:"quantity"`
	BatchNo           string          `json:"batch_no"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	Location          string          `json:"location"`
	Unit              string          `json:"unit"`
	Category          string          `json:"category"`
	CreatedBy         string          `json:"created_by"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type LowStockResponse struct {
	ItemResponse
	PercentageRemaining int64 `json:"percentage_remaining"`
}

type LogResponse struct {
	ID                string          `json:"id"`
	ItemID            string          `json:"item_id"`
	ItemName          string          `json:"item_name,omitempty"`
	DestinationItemID string          `json:"destination_item_id,omitempty"`
	Delta             decimal.Decimal `json:"delta"`
	Reason            string          `json:"reason"`
	Type              string          `json:"type"`
	ActorID           string          `json:"actor_id"`
	ActorName         string          `json:"actor_name,omitempty"`
	SubjectID         string          `json:"subject_id,omitempty"`
	RequestID         string          `json:"request_id,omitempty"`
	FromLocation      string          `json:"from_location,omitempty"`
	ToLocation        string          `json:"to_location,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type RequestLineResponse struct {
	ItemID   string          `json:"item_id"`
	ItemName string          `json:"item_name,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

type RequestResponse struct {
	ID                 string                `json:"id"`
	RequestingUnit     string                `json:"requesting_unit"`
	RequestingUnitName string                `json:"requesting_unit_name,omitempty"`
	RequestedBy        string                `json:"requested_by"`
	RequestedByName    string                `json:"requested_by_name,omitempty"`
	Status             string                `json:"status"`
	ApprovedBy         string                `json:"approved_by,omitempty"`
	RejectedBy         string                `json:"rejected_by,omitempty"`
	FulfilledBy        string                `json:"fulfilled_by,omitempty"`
	Notes              string                `json:"notes"`
	Lines              []RequestLineResponse `json:"lines"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

type TransferResponse struct {
	Source             ItemResponse `json:"source"`
	Destination        ItemResponse `json:"destination"`
	DestinationCreated bool         `json:"destination_created"`
	Entry              LogResponse  `json:"entry"`
}

type AdjustmentResponse struct {
	Item  ItemResponse `json:"item"`
	Entry LogResponse  `json:"entry"`
}

func toItemResponse(item domain.Item) ItemResponse {
	return ItemResponse{
		ID:                item.ID,
		Name:              item.Name,
		Quantity:          item.Quantity,
		BatchNo:           item.BatchNo,
		ExpiryDate:        item.ExpiryDate,
		LowStockThreshold: item.LowStockThreshold,
		Location:          item.Location,
		Unit:              item.Unit,
		Category:          item.Category,
		CreatedBy:         item.CreatedBy,
		Version:           item.Version,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

func toLogResponse(e domain.LogEntry, itemName, actorName string) LogResponse {
	return LogResponse{
		ID:                e.ID,
		ItemID:            e.ItemID,
		ItemName:          itemName,
		DestinationItemID: e.DestinationItemID,
		Delta:             e.Delta,
		Reason:            e.Reason,
		Type:              e.Type.String(),
		ActorID:           e.ActorID,
		ActorName:         actorName,
		SubjectID:         e.SubjectID,
		RequestID:         e.RequestID,
		FromLocation:      e.FromLocation,
		ToLocation:        e.ToLocation,
		CreatedAt:         e.CreatedAt,
	}
}

func toRequestResponse(req domain.Request) RequestResponse {
	lines := make([]RequestLineResponse, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, RequestLineResponse{ItemID: line.ItemID, Quantity: line.QuantityRequested, Unit: line.UnitOfMeasure})
	}
	return RequestResponse{
		ID:             req.ID,
		RequestingUnit: req.RequestingUnit,
		RequestedBy:    req.RequestedBy,
		Status:         req.Status.String(),
		ApprovedBy:     req.ApprovedBy,
		RejectedBy:     req.RejectedBy,
		FulfilledBy:    req.FulfilledBy,
		Notes:          req.Notes,
		Lines:          lines,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
	}
}

func toRequestViewResponse(view service.RequestView) RequestResponse {
	resp := toRequestResponse(view.Request)
	resp.RequestedByName = view.RequestedByName
	resp.RequestingUnitName = view.RequestingUnitName
	for i, line := range view.Lines {
		resp.Lines[i].ItemName = line.ItemName
	}
	return resp
}
