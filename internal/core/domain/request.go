package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus int

const (
	RequestPending RequestStatus = iota + 1
	RequestApproved
	RequestFulfilled
	RequestRejected
)

func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestApproved:
		return "approved"
	case RequestFulfilled:
		return "fulfilled"
	case RequestRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func ParseRequestStatus(s string) (RequestStatus, error) {
	switch s {
	case "pending":
		return RequestPending, nil
	case "approved":
		return RequestApproved, nil
	case "fulfilled":
		return RequestFulfilled, nil
	case "rejected":
		return RequestRejected, nil
	}
	return 0, fmt.Errorf("%w: unknown request status %q", ErrValidation, s)
}

// transitions is the only source of legal status edges.
var transitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestApproved, RequestRejected},
	RequestApproved:  {RequestFulfilled},
	RequestFulfilled: nil,
	RequestRejected:  nil,
}

func (s RequestStatus) CanTransition(to RequestStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

type RequestLine struct {
	ItemID            string
	QuantityRequested decimal.Decimal
	UnitOfMeasure     string
}

type Request struct {
	ID             string
	RequestingUnit string
	RequestedBy    string
	Lines          []RequestLine
	Status         RequestStatus
	ApprovedBy     string
	RejectedBy     string
	FulfilledBy    string
	Notes          string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Transition moves the request to the next status and stamps the actor.
func (r *Request) Transition(to RequestStatus, actor string, at time.Time) error {
	if !r.Status.CanTransition(to) {
		return &TransitionError{From: r.Status, To: to}
	}
	switch to {
	case RequestApproved:
		r.ApprovedBy = actor
	case RequestRejected:
		r.RejectedBy = actor
	case RequestFulfilled:
		r.FulfilledBy = actor
	}
	r.Status = to
	r.UpdatedAt = at
	return nil
}

// References reports whether any line points at itemID.
func (r Request) References(itemID string) bool {
	for _, line := range r.Lines {
		if line.ItemID == itemID {
			return true
		}
	}
	return false
}

type NewRequest struct {
	RequestingUnit string
	RequestedBy    string
	Lines          []RequestLine
	Notes          string
}

func (n NewRequest) Validate() error {
	if strings.TrimSpace(n.RequestingUnit) == "" {
		return fmt.Errorf("%w: requesting unit is required", ErrValidation)
	}
	if strings.TrimSpace(n.RequestedBy) == "" {
		return fmt.Errorf("%w: requested by is required", ErrValidation)
	}
	if len(n.Lines) == 0 {
		return fmt.Errorf("%w: request needs at least one line", ErrValidation)
	}
	for i, line := range n.Lines {
		if line.ItemID == "" {
			return fmt.Errorf("%w: line %d has no item", ErrValidation, i+1)
		}
		if !line.QuantityRequested.IsPositive() {
			return fmt.Errorf("%w: line %d quantity must be positive", ErrValidation, i+1)
		}
		if err := CheckScale(fmt.Sprintf("line %d quantity", i+1), line.QuantityRequested); err != nil {
			return err
		}
	}
	return nil
}

type RequestFilter struct {
	Status         RequestStatus // zero means any
	RequestingUnit string
}

func (f RequestFilter) Match(r Request) bool {
	if f.Status != 0 && r.Status != f.Status {
		return false
	}
	if f.RequestingUnit != "" && r.RequestingUnit != f.RequestingUnit {
		return false
	}
	return true
}
