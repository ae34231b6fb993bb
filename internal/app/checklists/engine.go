package checklists

import (
	"context"
	"strconv"
	"strings"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/checklistrepo"
)

// Engine loads applicable checklist items and validates operator-submitted
// values against them. It is pure validation: it never persists anything and
// never short-circuits, so the caller can report a complete summary.
type Engine struct {
	items checklistrepo.Repository
}

func NewEngine(itemsRepo checklistrepo.Repository) *Engine {
	return &Engine{items: itemsRepo}
}

// LoadApplicable returns the checklist for a (vehicle, optional trailer,
// phase) scope: vehicle items first, trailer items appended, each block in
// its stable repository order.
func (e *Engine) LoadApplicable(ctx context.Context, vehicleID domain.VehicleID, trailerID *domain.VehicleID, phase domain.ChecklistPhase) ([]domain.ChecklistItem, error) {
	out, err := e.items.ListForScope(ctx, vehicleID, phase)
	if err != nil {
		return nil, err
	}
	if trailerID != nil {
		more, err := e.items.ListForScope(ctx, *trailerID, phase)
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

// ItemError describes one rejected checklist item.
type ItemError struct {
	ItemID domain.ChecklistItemID
	Name   string
	Reason string
}

// Result is the outcome of validating a submission against a checklist.
type Result struct {
	Responses []domain.ChecklistResponse
	Errors    []ItemError
}

func (r Result) OK() bool { return len(r.Errors) == 0 }

// ValidateResponses checks the submitted raw values against the items and
// coerces them into typed responses. Submitted values are raw strings as
// entered by the operator; the item's declared type selects the stored
// representation. All errors are collected, none aborts validation.
func (e *Engine) ValidateResponses(items []domain.ChecklistItem, submitted map[domain.ChecklistItemID]string) Result {
	var res Result
	known := make(map[domain.ChecklistItemID]struct{}, len(items))

	for _, item := range items {
		known[item.ID] = struct{}{}

		raw, ok := submitted[item.ID]
		if !ok || strings.TrimSpace(raw) == "" {
			if item.IsRequired {
				res.Errors = append(res.Errors, ItemError{ItemID: item.ID, Name: item.Name, Reason: "value required"})
			}
			continue
		}

		value, reason := coerce(item.Type, raw)
		if reason != "" {
			res.Errors = append(res.Errors, ItemError{ItemID: item.ID, Name: item.Name, Reason: reason})
			continue
		}
		res.Responses = append(res.Responses, domain.ChecklistResponse{ItemID: item.ID, Value: value})
	}

	for id := range submitted {
		if _, ok := known[id]; !ok {
			res.Errors = append(res.Errors, ItemError{ItemID: id, Reason: "unknown checklist item"})
		}
	}
	return res
}

func coerce(t domain.ChecklistItemType, raw string) (domain.ChecklistValue, string) {
	raw = strings.TrimSpace(raw)
	switch t {
	case domain.ChecklistItemTypeBoolean:
		switch strings.ToLower(raw) {
		case "1", "true", "on", "yes":
			return domain.BoolValue(true), ""
		case "0", "false", "off", "no":
			return domain.BoolValue(false), ""
		default:
			return domain.ChecklistValue{}, "not a boolean value"
		}
	case domain.ChecklistItemTypeNumeric:
		// Operators enter decimals with either separator.
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return domain.ChecklistValue{}, "not a numeric value"
		}
		return domain.NumberValue(n), ""
	default:
		return domain.TextValue(raw), ""
	}
}
