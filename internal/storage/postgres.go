package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xaenox/client-hunter/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := newPostgresStorage(db, logger)

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func newPostgresStorage(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) CreateTemplate(ctx context.Context, t *models.Template) error {
	query := `
		INSERT INTO product_templates
			(user_id, name, keywords, chat_ids, lookback_minutes, check_interval_minutes, min_confidence, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		t.UserID,
		t.Name,
		pq.Array(t.Keywords),
		pq.Array(t.ChatIDs),
		t.LookbackMinutes,
		t.CheckIntervalMinutes,
		t.MinConfidence,
		t.IsActive,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating template: %w", err)
	}

	return nil
}

const templateColumns = `id, user_id, name, keywords, chat_ids, lookback_minutes, check_interval_minutes, min_confidence, is_active, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (*models.Template, error) {
	t := &models.Template{}
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		pq.Array(&t.Keywords),
		pq.Array(&t.ChatIDs),
		&t.LookbackMinutes,
		&t.CheckIntervalMinutes,
		&t.MinConfidence,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PostgresStorage) GetTemplate(ctx context.Context, userID, templateID int64) (*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM product_templates WHERE user_id = $1 AND id = $2`

	t, err := scanTemplate(s.db.QueryRowContext(ctx, query, userID, templateID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying template: %w", err)
	}
	return t, nil
}

func (s *PostgresStorage) ListTemplates(ctx context.Context, userID int64) ([]*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM product_templates WHERE user_id = $1 ORDER BY created_at DESC`
	return s.queryTemplates(ctx, query, userID)
}

func (s *PostgresStorage) GetActiveTemplates(ctx context.Context, userID int64) ([]*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM product_templates WHERE user_id = $1 AND is_active ORDER BY created_at DESC`
	return s.queryTemplates(ctx, query, userID)
}

func (s *PostgresStorage) queryTemplates(ctx context.Context, query string, args ...any) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *PostgresStorage) UpdateTemplate(ctx context.Context, t *models.Template) error {
	query := `
		UPDATE product_templates
		SET name = $1, keywords = $2, chat_ids = $3, lookback_minutes = $4,
		    check_interval_minutes = $5, min_confidence = $6, is_active = $7, updated_at = $8
		WHERE user_id = $9 AND id = $10`

	result, err := s.db.ExecContext(ctx, query,
		t.Name,
		pq.Array(t.Keywords),
		pq.Array(t.ChatIDs),
		t.LookbackMinutes,
		t.CheckIntervalMinutes,
		t.MinConfidence,
		t.IsActive,
		time.Now(),
		t.UserID,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating template: %w", err)
	}
	return checkAffected(result)
}

func (s *PostgresStorage) DeleteTemplate(ctx context.Context, userID, templateID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM product_templates WHERE user_id = $1 AND id = $2`, userID, templateID)
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	return checkAffected(result)
}

func (s *PostgresStorage) GetUsersWithActiveTemplates(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM product_templates WHERE is_active ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("error querying active users: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (s *PostgresStorage) GetSettings(ctx context.Context, userID int64) (*models.MonitoringSettings, error) {
	query := `
		SELECT user_id, notification_accounts, check_interval_minutes, is_active, last_check, created_at, updated_at
		FROM monitoring_settings
		WHERE user_id = $1`

	settings := &models.MonitoringSettings{}
	var lastCheck sql.NullTime
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID,
		pq.Array(&settings.NotificationAccounts),
		&settings.CheckIntervalMinutes,
		&settings.IsActive,
		&lastCheck,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying settings: %w", err)
	}
	if lastCheck.Valid {
		t := lastCheck.Time
		settings.LastCheck = &t
	}
	return settings, nil
}

func (s *PostgresStorage) SaveSettings(ctx context.Context, settings *models.MonitoringSettings) error {
	query := `
		INSERT INTO monitoring_settings (user_id, notification_accounts, check_interval_minutes, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET notification_accounts = EXCLUDED.notification_accounts,
		    check_interval_minutes = EXCLUDED.check_interval_minutes,
		    is_active = EXCLUDED.is_active,
		    updated_at = now()
		RETURNING created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		settings.UserID,
		pq.Array(settings.NotificationAccounts),
		settings.CheckIntervalMinutes,
		settings.IsActive,
	).Scan(&settings.CreatedAt, &settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error saving settings: %w", err)
	}
	return nil
}

func (s *PostgresStorage) UpdateLastCheck(ctx context.Context, userID int64, t time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE monitoring_settings SET last_check = $1, updated_at = now() WHERE user_id = $2`, t, userID)
	if err != nil {
		return fmt.Errorf("error updating last check: %w", err)
	}
	return checkAffected(result)
}

func (s *PostgresStorage) HasLead(ctx context.Context, userID int64, messageID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM potential_clients WHERE user_id = $1 AND message_id = $2)`,
		userID, messageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking lead: %w", err)
	}
	return exists, nil
}

func (s *PostgresStorage) CreateLead(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}

	query := `
		INSERT INTO potential_clients
			(id, user_id, template_id, template_name, message_id, chat_id, chat_title,
			 author_id, author_username, author_first_name, message_text, matched_keywords,
			 confidence, intent_type, reasoning, status, notification_sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at`

	err := s.db.QueryRowContext(ctx, query,
		lead.ID,
		lead.UserID,
		lead.TemplateID,
		lead.TemplateName,
		lead.MessageID,
		lead.ChatID,
		lead.ChatTitle,
		lead.AuthorID,
		lead.AuthorUsername,
		lead.AuthorFirstName,
		lead.MessageText,
		pq.Array(lead.MatchedKeywords),
		lead.Confidence,
		lead.IntentType,
		lead.Reasoning,
		lead.Status,
		lead.NotificationSent,
	).Scan(&lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating lead: %w", err)
	}
	return nil
}

const leadColumns = `id, user_id, template_id, template_name, message_id, chat_id, chat_title,
	author_id, author_username, author_first_name, message_text, matched_keywords,
	confidence, intent_type, reasoning, status, notification_sent, created_at`

func (s *PostgresStorage) ListLeads(ctx context.Context, userID int64, status models.LeadStatus, limit, offset int) ([]*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM potential_clients WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(` OFFSET %d`, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead := &models.Lead{}
		err := rows.Scan(
			&lead.ID,
			&lead.UserID,
			&lead.TemplateID,
			&lead.TemplateName,
			&lead.MessageID,
			&lead.ChatID,
			&lead.ChatTitle,
			&lead.AuthorID,
			&lead.AuthorUsername,
			&lead.AuthorFirstName,
			&lead.MessageText,
			pq.Array(&lead.MatchedKeywords),
			&lead.Confidence,
			&lead.IntentType,
			&lead.Reasoning,
			&lead.Status,
			&lead.NotificationSent,
			&lead.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (s *PostgresStorage) UpdateLeadStatus(ctx context.Context, userID int64, leadID string, status models.LeadStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE potential_clients SET status = $1 WHERE user_id = $2 AND id = $3`,
		status, userID, leadID)
	if err != nil {
		return fmt.Errorf("error updating lead status: %w", err)
	}
	return checkAffected(result)
}

func (s *PostgresStorage) GetStats(ctx context.Context, userID int64) (*models.MonitoringStats, error) {
	stats := &models.MonitoringStats{
		StatusDistribution: make(map[models.LeadStatus]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM potential_clients WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.LeadStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("error scanning stats: %w", err)
		}
		stats.StatusDistribution[status] = count
		stats.TotalLeads += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM potential_clients WHERE user_id = $1 AND created_at >= $2`,
		userID, weekAgo).Scan(&stats.LeadsThisWeek)
	if err != nil {
		return nil, fmt.Errorf("error querying weekly stats: %w", err)
	}

	return stats, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
