package bulk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tani/internal/errx"
	"tani/internal/models"
	"tani/internal/repositories"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dialectPostgres = "postgres"

// Transactor opens the transaction a plan runs in.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(tx repositories.BulkWriter) error) error
}

// Executor applies a Plan as one statement per field group inside a single transaction.
type Executor struct {
	tx  Transactor
	log zerolog.Logger
	now func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithClock overrides the time used for updated_at.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// NewExecutor creates an Executor over tx.
func NewExecutor(tx Transactor, log zerolog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{tx: tx, log: log, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every group of plan. Either all groups apply or none do. A group that changes
// fewer rows than it targets, because an id is missing or soft-deleted, fails the whole batch.
// Failures surface as errx.ErrBulkTransaction; the cause is only logged.
func (e *Executor) Execute(ctx context.Context, plan Plan) error {
	if len(plan.Groups) == 0 {
		return nil
	}
	at := e.now().UTC()

	err := e.tx.RunInTransaction(ctx, func(w repositories.BulkWriter) error {
		dialect := w.Dialect()
		for _, g := range plan.Groups {
			u, err := BuildFieldUpdate(dialect, g)
			if err != nil {
				return err
			}
			n, err := w.UpdateField(ctx, u, at)
			if err != nil {
				return fmt.Errorf("field %s: %w", g.Field, err)
			}
			if n != int64(len(u.IDs)) {
				return fmt.Errorf("field %s: updated %d of %d rows", g.Field, n, len(u.IDs))
			}
		}
		return nil
	})
	if err != nil {
		e.log.Error().Err(err).
			Int("groups", len(plan.Groups)).
			Strs("ids", plan.IDs()).
			Msg("bulk update rolled back")
		return errx.BulkTransaction()
	}

	e.log.Debug().Int("groups", len(plan.Groups)).Int("rows", len(plan.ids)).Msg("bulk update committed")
	return nil
}

// BuildFieldUpdate renders g as "CASE id WHEN ? THEN ? ... END". Ids and values are always
// bound parameters. On postgres each value is cast to the column type since untyped
// parameters inside CASE resolve to text.
func BuildFieldUpdate(dialect string, g FieldGroup) (repositories.FieldUpdate, error) {
	if !g.Field.Valid() {
		return repositories.FieldUpdate{}, fmt.Errorf("unknown field %q", g.Field)
	}
	if len(g.Entries) == 0 {
		return repositories.FieldUpdate{}, fmt.Errorf("field %s has no entries", g.Field)
	}

	then := "?"
	if dialect == dialectPostgres {
		then = "CAST(? AS " + g.Field.PostgresType() + ")"
	}

	var sb strings.Builder
	args := make([]any, 0, 2*len(g.Entries))
	sb.WriteString("CASE id")
	for _, entry := range g.Entries {
		v, err := bindValue(g.Field, entry.Value)
		if err != nil {
			return repositories.FieldUpdate{}, fmt.Errorf("row %s: %w", entry.ID, err)
		}
		sb.WriteString(" WHEN ? THEN ")
		sb.WriteString(then)
		args = append(args, entry.ID, v)
	}
	sb.WriteString(" END")

	return repositories.FieldUpdate{
		Column: g.Field.Column(),
		Value:  gorm.Expr(sb.String(), args...),
		IDs:    g.IDs(),
	}, nil
}

// bindValue converts a planned value into the form the driver stores for the column.
func bindValue(field models.Field, v any) (any, error) {
	switch field.Kind() {
	case models.KindText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case models.KindNumeric:
		if d, ok := v.(decimal.Decimal); ok {
			return d, nil
		}
	case models.KindInteger:
		if n, ok := v.(int64); ok {
			return n, nil
		}
	case models.KindTimestamp:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
	case models.KindBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case models.KindCollection:
		if s, ok := v.([]string); ok {
			return datatypes.JSONSlice[string](s), nil
		}
	}
	return nil, fmt.Errorf("field %s: unexpected value type %T", field, v)
}
