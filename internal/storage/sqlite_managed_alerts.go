package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/models"
)

// sqliteManagedAlertRepo implements ManagedAlertRepository for SQLite.
type sqliteManagedAlertRepo struct {
	db *sql.DB
}

// Register inserts the managed alert. The ON CONFLICT clause makes the
// source alert ID check and the insert a single atomic statement, so
// two concurrent registrations of the same alert cannot both succeed.
func (r *sqliteManagedAlertRepo) Register(ctx context.Context, alert *models.ManagedAlert) error {
	var alertData sql.NullString
	if alert.AlertData != nil {
		data, err := json.Marshal(alert.AlertData)
		if err != nil {
			return fmt.Errorf("marshal alert data: %w", err)
		}
		alertData = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO managed_alerts (
			id, alert_id, state, timestamp, agent_id, agent_name,
			rule_id, rule_level, rule_description, alert_data,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(alert_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.AlertID, string(alert.State), alert.Timestamp,
		alert.AgentID, alert.AgentName, alert.RuleID, alert.RuleLevel,
		alert.RuleDescription, alertData, alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert managed alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *sqliteManagedAlertRepo) GetByID(ctx context.Context, id string) (*models.ManagedAlert, error) {
	query := `
		SELECT id, alert_id, state, timestamp, agent_id, agent_name,
		       rule_id, rule_level, rule_description, alert_data,
		       created_at, updated_at
		FROM managed_alerts WHERE id = ?
	`
	return r.scanAlert(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteManagedAlertRepo) List(ctx context.Context, limit, offset int, state models.AlertState) ([]*models.ManagedAlert, int64, error) {
	where := ""
	args := []any{}
	if state != "" {
		where = "WHERE state = ?"
		args = append(args, string(state))
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM managed_alerts " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count managed alerts: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, alert_id, state, timestamp, agent_id, agent_name,
		       rule_id, rule_level, rule_description, alert_data,
		       created_at, updated_at
		FROM managed_alerts %s
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, where)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list managed alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.ManagedAlert
	for rows.Next() {
		alert, err := r.scanAlertRow(rows)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, total, rows.Err()
}

func (r *sqliteManagedAlertRepo) UpdateState(ctx context.Context, id string, state models.AlertState) (*models.ManagedAlert, error) {
	query := `
		UPDATE managed_alerts SET state = ?, updated_at = ? WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query, string(state), time.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("update alert state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	alert, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrNotFound
	}
	return alert, nil
}

func (r *sqliteManagedAlertRepo) scanAlert(row *sql.Row) (*models.ManagedAlert, error) {
	var alert models.ManagedAlert
	var state string
	var alertData sql.NullString
	err := row.Scan(&alert.ID, &alert.AlertID, &state, &alert.Timestamp,
		&alert.AgentID, &alert.AgentName, &alert.RuleID, &alert.RuleLevel,
		&alert.RuleDescription, &alertData, &alert.CreatedAt, &alert.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan managed alert: %w", err)
	}
	alert.State = models.AlertState(state)
	if err := unmarshalAlertData(alertData, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *sqliteManagedAlertRepo) scanAlertRow(rows *sql.Rows) (*models.ManagedAlert, error) {
	var alert models.ManagedAlert
	var state string
	var alertData sql.NullString
	err := rows.Scan(&alert.ID, &alert.AlertID, &state, &alert.Timestamp,
		&alert.AgentID, &alert.AgentName, &alert.RuleID, &alert.RuleLevel,
		&alert.RuleDescription, &alertData, &alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan managed alert: %w", err)
	}
	alert.State = models.AlertState(state)
	if err := unmarshalAlertData(alertData, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func unmarshalAlertData(raw sql.NullString, alert *models.ManagedAlert) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw.String), &alert.AlertData); err != nil {
		return fmt.Errorf("unmarshal alert data: %w", err)
	}
	return nil
}
