package catalog

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/odyssey-erp/stockdesk/internal/shared"
)

// BulkField names the product column a bulk operation targets.
type BulkField string

// BulkAction names how the value is applied.
type BulkAction string

const (
	BulkFieldPrice BulkField = "price"
	BulkFieldStock BulkField = "stock"

	BulkSet      BulkAction = "set"
	BulkIncrease BulkAction = "increase"
	BulkDecrease BulkAction = "decrease"
)

// BulkOperation is applied to every selected product.
type BulkOperation struct {
	Field  BulkField  `json:"field"`
	Action BulkAction `json:"action"`
	Value  string     `json:"value"`
}

// BulkOutcome reports the result for one product id.
type BulkOutcome struct {
	ID      int64    `json:"id"`
	Product *Product `json:"product,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// BulkReport summarises a bulk run.
type BulkReport struct {
	BatchID   string        `json:"batchId"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Outcomes  []BulkOutcome `json:"outcomes"`
}

// ParseBulkValue parses the operand of a bulk operation.
func ParseBulkValue(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, shared.Validationf("bulk value %q is not a number", raw)
	}
	return v, nil
}

func (op BulkOperation) validate() (float64, error) {
	switch op.Field {
	case BulkFieldPrice, BulkFieldStock:
	default:
		return 0, shared.Validationf("unsupported bulk field %q", op.Field)
	}
	switch op.Action {
	case BulkSet, BulkIncrease, BulkDecrease:
	default:
		return 0, shared.Validationf("unsupported bulk action %q", op.Action)
	}
	return ParseBulkValue(op.Value)
}

// patchFor computes the patch that applies op to current.
func (op BulkOperation) patchFor(current Product, value float64) (ProductPatch, error) {
	var base float64
	switch op.Field {
	case BulkFieldPrice:
		base = current.Price
	case BulkFieldStock:
		base = float64(current.Stock)
	}
	next := value
	switch op.Action {
	case BulkIncrease:
		next = base + value
	case BulkDecrease:
		next = base - value
	}
	if next < 0 {
		return ProductPatch{}, shared.Validationf("%s would drop below zero", op.Field)
	}
	if op.Field == BulkFieldStock {
		stock := int(math.Round(next))
		return ProductPatch{Stock: &stock}, nil
	}
	price := roundPrice(next)
	return ProductPatch{Price: &price}, nil
}

// ApplyBulk updates each id in order. Every id is its own transaction, so a
// failure on one id leaves the others applied.
func (s *Service) ApplyBulk(ctx context.Context, ids []int64, op BulkOperation) (BulkReport, error) {
	value, err := op.validate()
	if err != nil {
		return BulkReport{}, err
	}
	batch := "bulk:" + uuid.NewString()
	report := BulkReport{BatchID: batch, Outcomes: make([]BulkOutcome, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome := BulkOutcome{ID: id}
		updated, err := s.applyBulkOne(ctx, id, op, value, batch)
		if err != nil {
			outcome.Error = err.Error()
			report.Failed++
		} else {
			outcome.Product = &updated
			report.Succeeded++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report, nil
}

// applyBulkOne derives the new value from the row locked inside the update
// transaction, so concurrent relative updates cannot overwrite each other.
func (s *Service) applyBulkOne(ctx context.Context, id int64, op BulkOperation, value float64, batch string) (Product, error) {
	return s.mutateProduct(ctx, id, func(current Product) (ProductPatch, error) {
		return op.patchFor(current, value)
	}, &batch)
}
