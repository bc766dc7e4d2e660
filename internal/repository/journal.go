package repository

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/models"
)

// OutcomeRecord is a journaled terminal outcome, keyed by the provider
// reference token. This is what support queries when a customer quotes the
// reference from a degraded confirmation screen.
type OutcomeRecord struct {
	Reference     string             `json:"reference"`
	SessionID     string             `json:"session_id"`
	Kind          models.OutcomeKind `json:"kind"`
	Reason        string             `json:"reason,omitempty"`
	OrderNumber   string             `json:"order_number,omitempty"`
	TotalAmount   int64              `json:"total_amount"`
	TotalCurrency string             `json:"total_currency,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	ConfirmedAt   *time.Time         `json:"confirmed_at,omitempty"`
}

// PostgresOutcomeJournal persists terminal outcomes in PostgreSQL.
type PostgresOutcomeJournal struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresOutcomeJournal creates a PostgreSQL-backed outcome journal.
func NewPostgresOutcomeJournal(db *sql.DB, logger *zap.Logger) *PostgresOutcomeJournal {
	return &PostgresOutcomeJournal{
		db:     db,
		logger: logger,
	}
}

// Record journals a terminal outcome. Inserting is idempotent per
// reference: reconciling the same reference twice writes one row.
// Outcomes without a reference (cancelled before initiation completed)
// have nothing for support to look up and are skipped.
func (j *PostgresOutcomeJournal) Record(ctx context.Context, session *models.CheckoutSession, outcome *models.ReconciliationOutcome) error {
	reference := session.Reference
	if reference == "" {
		reference = outcome.PartialReference
	}
	if reference == "" {
		j.logger.Debug("Skipping journal entry without reference",
			zap.String("session_id", session.ID))
		return nil
	}

	var orderNumber sql.NullString
	var totalAmount int64
	var totalCurrency sql.NullString
	if outcome.Order != nil {
		orderNumber = sql.NullString{String: outcome.Order.OrderNumber, Valid: true}
		totalAmount = outcome.Order.Total.Amount
		totalCurrency = sql.NullString{String: outcome.Order.Total.Currency, Valid: true}
	} else if session.Totals != nil {
		totalAmount = session.Totals.Total.Amount
		totalCurrency = sql.NullString{String: session.Totals.Total.Currency, Valid: true}
	}

	query := `
		INSERT INTO checkout_outcomes
			(reference, session_id, kind, reason, order_number, total_amount, total_currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (reference) DO NOTHING
	`

	_, err := j.db.ExecContext(ctx, query,
		reference,
		session.ID,
		string(outcome.Kind),
		outcome.Reason,
		orderNumber,
		totalAmount,
		totalCurrency,
		outcome.ResolvedAt,
	)
	if err != nil {
		j.logger.Error("Failed to journal outcome",
			zap.String("reference", reference),
			zap.Error(err))
		return err
	}

	j.logger.Debug("Outcome journaled",
		zap.String("reference", reference),
		zap.String("kind", string(outcome.Kind)))
	return nil
}

// GetByReference fetches a journaled outcome for support lookups. Returns
// (nil, nil) when the reference is unknown.
func (j *PostgresOutcomeJournal) GetByReference(ctx context.Context, reference string) (*OutcomeRecord, error) {
	query := `
		SELECT reference, session_id, kind, reason, order_number,
		       total_amount, total_currency, created_at, confirmed_at
		FROM checkout_outcomes
		WHERE reference = $1
	`

	var record OutcomeRecord
	var reason, orderNumber, totalCurrency sql.NullString
	var confirmedAt sql.NullTime

	err := j.db.QueryRowContext(ctx, query, reference).Scan(
		&record.Reference,
		&record.SessionID,
		&record.Kind,
		&reason,
		&orderNumber,
		&record.TotalAmount,
		&totalCurrency,
		&record.CreatedAt,
		&confirmedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		j.logger.Error("Failed to fetch journaled outcome",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, err
	}

	if reason.Valid {
		record.Reason = reason.String
	}
	if orderNumber.Valid {
		record.OrderNumber = orderNumber.String
	}
	if totalCurrency.Valid {
		record.TotalCurrency = totalCurrency.String
	}
	if confirmedAt.Valid {
		record.ConfirmedAt = &confirmedAt.Time
	}

	return &record, nil
}

// MarkConfirmed upgrades a degraded journal row once the backend confirms
// the order after the fact. The session itself stays degraded; the journal
// is what support reads.
func (j *PostgresOutcomeJournal) MarkConfirmed(ctx context.Context, reference, orderNumber string) error {
	query := `
		UPDATE checkout_outcomes
		SET kind = $1, order_number = $2, confirmed_at = $3
		WHERE reference = $4 AND kind = $5
	`

	result, err := j.db.ExecContext(ctx, query,
		string(models.OutcomeConfirmed),
		orderNumber,
		time.Now().UTC(),
		reference,
		string(models.OutcomeDegraded),
	)
	if err != nil {
		j.logger.Error("Failed to mark outcome confirmed",
			zap.String("reference", reference),
			zap.Error(err))
		return err
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		j.logger.Info("Degraded outcome confirmed late",
			zap.String("reference", reference),
			zap.String("order_number", orderNumber))
	}

	return nil
}

// Ping verifies connectivity for readiness checks.
func (j *PostgresOutcomeJournal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}
