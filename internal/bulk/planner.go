// Package bulk turns a batch of per-row partial updates into one conditional update statement
// per field and applies them atomically.
package bulk

import (
	"tani/internal/errx"
	"tani/internal/models"

	"github.com/shopspring/decimal"
)

// Assignment is the value one row receives for a field.
type Assignment struct {
	ID    string
	Value any
}

// FieldGroup holds every assignment of one field, in request order.
type FieldGroup struct {
	Field   models.Field
	Entries []Assignment
}

// IDs returns the row ids of the group in request order.
func (g FieldGroup) IDs() []string {
	ids := make([]string, len(g.Entries))
	for i, e := range g.Entries {
		ids[i] = e.ID
	}
	return ids
}

// Plan is the grouped form of a batch. Groups appear in order of first use.
type Plan struct {
	Groups []FieldGroup
	ids    []string
}

// IDs returns the distinct row ids of the batch in request order.
func (p Plan) IDs() []string {
	out := make([]string, len(p.ids))
	copy(out, p.ids)
	return out
}

// Group returns the group for field, if any row set it.
func (p Plan) Group(field models.Field) (FieldGroup, bool) {
	for _, g := range p.Groups {
		if g.Field == field {
			return g, true
		}
	}
	return FieldGroup{}, false
}

// NewPlan groups rows by field. Each row contributes its own value to every field it sets;
// values, including collections, are never shared or merged across rows.
func NewPlan(rows []models.BulkUpdateRow) (Plan, error) {
	var plan Plan
	index := make(map[models.Field]int)
	seenID := make(map[string]bool)
	seenPair := make(map[models.Field]map[string]bool)

	for i, row := range rows {
		if row.ID == "" {
			return Plan{}, errx.Invalid("row %d: id is required", i)
		}
		values := row.Values()
		if len(values) == 0 {
			return Plan{}, errx.Invalid("row %d (%s): at least one field must be set", i, row.ID)
		}
		if !seenID[row.ID] {
			seenID[row.ID] = true
			plan.ids = append(plan.ids, row.ID)
		}

		for _, fv := range values {
			if seenPair[fv.Field] == nil {
				seenPair[fv.Field] = make(map[string]bool)
			}
			if seenPair[fv.Field][row.ID] {
				return Plan{}, errx.Invalid("row %d (%s): field %s set more than once", i, row.ID, fv.Field)
			}
			seenPair[fv.Field][row.ID] = true
			if fv.Field == models.FieldPrice {
				if err := models.CheckPrice(fv.Value.(decimal.Decimal)); err != nil {
					return Plan{}, errx.Invalid("row %d (%s): %s", i, row.ID, err)
				}
			}

			gi, ok := index[fv.Field]
			if !ok {
				gi = len(plan.Groups)
				index[fv.Field] = gi
				plan.Groups = append(plan.Groups, FieldGroup{Field: fv.Field})
			}
			plan.Groups[gi].Entries = append(plan.Groups[gi].Entries, Assignment{ID: row.ID, Value: fv.Value})
		}
	}
	return plan, nil
}
