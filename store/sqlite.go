package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lensfolio/agent-gateway/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements the Store interface.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			studio_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			mode TEXT NOT NULL,
			scopes TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS tool_invocations (
			invocation_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			args TEXT,
			result TEXT,
			outcome TEXT NOT NULL,
			success INTEGER NOT NULL,
			error TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			simulated INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_invocations_session ON tool_invocations(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS confirmations (
			confirmation_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			args TEXT,
			reason TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			decided_by TEXT,
			decided_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE TABLE IF NOT EXISTS shadow_diffs (
			diff_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			v1_response TEXT NOT NULL,
			v1_error TEXT,
			v1_duration_ms INTEGER NOT NULL DEFAULT 0,
			v2_plan TEXT,
			v2_results TEXT,
			v2_error TEXT,
			v2_duration_ms INTEGER NOT NULL DEFAULT 0,
			match INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shadow_diffs_created ON shadow_diffs(created_at)`,
		`CREATE TABLE IF NOT EXISTS clients (
			client_id TEXT PRIMARY KEY,
			studio_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			notes TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clients_studio ON clients(studio_id, name)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			invoice_id TEXT PRIMARY KEY,
			studio_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			amount_cents INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			due_date TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (client_id) REFERENCES clients(client_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_studio ON invoices(studio_id, status)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			appointment_id TEXT PRIMARY KEY,
			studio_id TEXT NOT NULL,
			client_id TEXT,
			title TEXT NOT NULL,
			starts_at DATETIME NOT NULL,
			ends_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_studio ON appointments(studio_id, starts_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	scopes, err := json.Marshal(session.Scopes)
	if err != nil {
		return fmt.Errorf("failed to marshal scopes: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, studio_id, user_id, role, mode, scopes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.StudioID, session.UserID, string(session.Role),
		string(session.Mode), string(scopes), session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns nil when not found.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, studio_id, user_id, role, mode, scopes, created_at, updated_at
		 FROM sessions WHERE session_id = ?`, sessionID)

	var sess domain.Session
	var role, mode, scopes string
	err := row.Scan(&sess.SessionID, &sess.StudioID, &sess.UserID, &role, &mode, &scopes,
		&sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.Role = domain.Role(role)
	sess.Mode = domain.Mode(mode)
	if err := json.Unmarshal([]byte(scopes), &sess.Scopes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scopes: %w", err)
	}
	return &sess, nil
}

// TouchSession bumps a session's updated_at.
func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE session_id = ?`, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// CreateMessage appends a message to a session's transcript.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, role, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		message.MessageID, message.SessionID, message.Role, message.Content,
		nullableJSON(message.Metadata), message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetMessages retrieves a session's transcript in creation order.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, session_id, role, content, metadata, created_at
		 FROM messages WHERE session_id = ?
		 ORDER BY created_at ASC, rowid ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var metadata sql.NullString
		if err := rows.Scan(&m.MessageID, &m.SessionID, &m.Role, &m.Content, &metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if metadata.Valid {
			m.Metadata = json.RawMessage(metadata.String)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CreateToolInvocation appends one audit ledger entry.
func (s *SQLiteStore) CreateToolInvocation(ctx context.Context, inv *domain.ToolInvocation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_invocations (invocation_id, session_id, tool_name, args, result, outcome, success, error, duration_ms, simulated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.InvocationID, inv.SessionID, inv.ToolName, nullableJSON(inv.Args),
		nullableJSON(inv.Result), string(inv.Outcome), inv.Success,
		nullableString(inv.Error), inv.DurationMs, inv.Simulated, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tool invocation: %w", err)
	}
	return nil
}

// GetToolInvocations retrieves a session's audit log in dispatch order.
func (s *SQLiteStore) GetToolInvocations(ctx context.Context, sessionID string, limit int) ([]domain.ToolInvocation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT invocation_id, session_id, tool_name, args, result, outcome, success, error, duration_ms, simulated, created_at
		 FROM tool_invocations WHERE session_id = ?
		 ORDER BY created_at ASC, rowid ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool invocations: %w", err)
	}
	defer rows.Close()

	var invocations []domain.ToolInvocation
	for rows.Next() {
		var inv domain.ToolInvocation
		var args, result, errText sql.NullString
		var outcome string
		if err := rows.Scan(&inv.InvocationID, &inv.SessionID, &inv.ToolName, &args, &result,
			&outcome, &inv.Success, &errText, &inv.DurationMs, &inv.Simulated, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tool invocation: %w", err)
		}
		inv.Outcome = domain.InvocationOutcome(outcome)
		if args.Valid {
			inv.Args = json.RawMessage(args.String)
		}
		if result.Valid {
			inv.Result = json.RawMessage(result.String)
		}
		if errText.Valid {
			inv.Error = errText.String
		}
		invocations = append(invocations, inv)
	}
	return invocations, rows.Err()
}

// CreateConfirmation inserts a pending confirmation.
func (s *SQLiteStore) CreateConfirmation(ctx context.Context, conf *domain.Confirmation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO confirmations (confirmation_id, session_id, tool_name, args, reason, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conf.ConfirmationID, conf.SessionID, conf.ToolName, nullableJSON(conf.Args),
		conf.Reason, string(conf.Status), conf.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create confirmation: %w", err)
	}
	return nil
}

// GetConfirmation retrieves a confirmation by ID. Returns nil when not found.
func (s *SQLiteStore) GetConfirmation(ctx context.Context, confirmationID string) (*domain.Confirmation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT confirmation_id, session_id, tool_name, args, reason, status, decided_by, decided_at, created_at
		 FROM confirmations WHERE confirmation_id = ?`, confirmationID)

	var conf domain.Confirmation
	var args, decidedBy sql.NullString
	var decidedAt sql.NullTime
	var status string
	err := row.Scan(&conf.ConfirmationID, &conf.SessionID, &conf.ToolName, &args, &conf.Reason,
		&status, &decidedBy, &decidedAt, &conf.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmation: %w", err)
	}
	conf.Status = domain.ConfirmationStatus(status)
	if args.Valid {
		conf.Args = json.RawMessage(args.String)
	}
	if decidedBy.Valid {
		conf.DecidedBy = decidedBy.String
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		conf.DecidedAt = &t
	}
	return &conf, nil
}

// DecideConfirmation transitions a pending confirmation exactly once.
func (s *SQLiteStore) DecideConfirmation(ctx context.Context, confirmationID string, status domain.ConfirmationStatus, decidedBy string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE confirmations SET status = ?, decided_by = ?, decided_at = ?
		 WHERE confirmation_id = ? AND status = 'pending'`,
		string(status), decidedBy, time.Now().UTC(), confirmationID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to decide confirmation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// CreateShadowDiff inserts one shadow diff record.
func (s *SQLiteStore) CreateShadowDiff(ctx context.Context, diff *domain.ShadowDiff) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shadow_diffs (diff_id, session_id, v1_response, v1_error, v1_duration_ms, v2_plan, v2_results, v2_error, v2_duration_ms, match, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		diff.DiffID, diff.SessionID, diff.V1Response, nullableString(diff.V1Error),
		diff.V1DurationMs, nullableJSON(diff.V2Plan), nullableJSON(diff.V2Results),
		nullableString(diff.V2Error), diff.V2DurationMs, diff.Match, diff.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create shadow diff: %w", err)
	}
	return nil
}

// ListShadowDiffs retrieves raw diff records, most recent first.
func (s *SQLiteStore) ListShadowDiffs(ctx context.Context, limit int) ([]domain.ShadowDiff, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT diff_id, session_id, v1_response, v1_error, v1_duration_ms, v2_plan, v2_results, v2_error, v2_duration_ms, match, created_at
		 FROM shadow_diffs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query shadow diffs: %w", err)
	}
	defer rows.Close()

	var diffs []domain.ShadowDiff
	for rows.Next() {
		var d domain.ShadowDiff
		var v1Err, v2Plan, v2Results, v2Err sql.NullString
		if err := rows.Scan(&d.DiffID, &d.SessionID, &d.V1Response, &v1Err, &d.V1DurationMs,
			&v2Plan, &v2Results, &v2Err, &d.V2DurationMs, &d.Match, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shadow diff: %w", err)
		}
		if v1Err.Valid {
			d.V1Error = v1Err.String
		}
		if v2Plan.Valid {
			d.V2Plan = json.RawMessage(v2Plan.String)
		}
		if v2Results.Valid {
			d.V2Results = json.RawMessage(v2Results.String)
		}
		if v2Err.Valid {
			d.V2Error = v2Err.String
		}
		diffs = append(diffs, d)
	}
	return diffs, rows.Err()
}

// ShadowStats aggregates match/mismatch/error counts and average durations.
func (s *SQLiteStore) ShadowStats(ctx context.Context) (*domain.ShadowStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN match = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN match = 0 AND v1_error IS NULL AND v2_error IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN v1_error IS NOT NULL OR v2_error IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(v1_duration_ms), 0),
			COALESCE(AVG(v2_duration_ms), 0)
		 FROM shadow_diffs`)

	var stats domain.ShadowStats
	if err := row.Scan(&stats.Total, &stats.Matches, &stats.Mismatches, &stats.Errors,
		&stats.AvgV1Duration, &stats.AvgV2Duration); err != nil {
		return nil, fmt.Errorf("failed to aggregate shadow stats: %w", err)
	}
	return &stats, nil
}

// CreateClient inserts a CRM client.
func (s *SQLiteStore) CreateClient(ctx context.Context, client *domain.Client) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (client_id, studio_id, name, email, phone, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ClientID, client.StudioID, client.Name, client.Email, client.Phone, client.Notes,
		client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// GetClient retrieves a client by ID. Returns nil when not found.
func (s *SQLiteStore) GetClient(ctx context.Context, clientID string) (*domain.Client, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT client_id, studio_id, name, email, phone, notes, created_at, updated_at
		 FROM clients WHERE client_id = ?`, clientID)

	var c domain.Client
	var email, phone, notes sql.NullString
	err := row.Scan(&c.ClientID, &c.StudioID, &c.Name, &email, &phone, &notes, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	c.Email, c.Phone, c.Notes = email.String, phone.String, notes.String
	return &c, nil
}

// ListClients lists a studio's clients, optionally filtered by a name/email substring.
func (s *SQLiteStore) ListClients(ctx context.Context, studioID, query string, limit int) ([]domain.Client, error) {
	if limit <= 0 {
		limit = 25
	}
	q := `SELECT client_id, studio_id, name, email, phone, notes, created_at, updated_at
		FROM clients WHERE studio_id = ?`
	args := []interface{}{studioID}
	if query != "" {
		q += ` AND (name LIKE ? OR email LIKE ?)`
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}
	q += ` ORDER BY name ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		var email, phone, notes sql.NullString
		if err := rows.Scan(&c.ClientID, &c.StudioID, &c.Name, &email, &phone, &notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		c.Email, c.Phone, c.Notes = email.String, phone.String, notes.String
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// UpdateClient applies the non-nil fields of the update to one client row.
func (s *SQLiteStore) UpdateClient(ctx context.Context, clientID string, update domain.ClientUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *update.Email)
	}
	if update.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *update.Phone)
	}
	if update.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *update.Notes)
	}
	args = append(args, clientID)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE clients SET %s WHERE client_id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("client %s not found", clientID)
	}
	return nil
}

// CreateInvoice inserts an invoice.
func (s *SQLiteStore) CreateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invoices (invoice_id, studio_id, client_id, amount_cents, status, due_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		invoice.InvoiceID, invoice.StudioID, invoice.ClientID, invoice.AmountCents,
		invoice.Status, nullableString(invoice.DueDate), invoice.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// GetInvoice retrieves an invoice by ID. Returns nil when not found.
func (s *SQLiteStore) GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT invoice_id, studio_id, client_id, amount_cents, status, due_date, created_at
		 FROM invoices WHERE invoice_id = ?`, invoiceID)

	var inv domain.Invoice
	var dueDate sql.NullString
	err := row.Scan(&inv.InvoiceID, &inv.StudioID, &inv.ClientID, &inv.AmountCents, &inv.Status, &dueDate, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	inv.DueDate = dueDate.String
	return &inv, nil
}

// ListInvoices lists a studio's invoices, optionally filtered by status.
func (s *SQLiteStore) ListInvoices(ctx context.Context, studioID, status string, limit int) ([]domain.Invoice, error) {
	if limit <= 0 {
		limit = 25
	}
	q := `SELECT invoice_id, studio_id, client_id, amount_cents, status, due_date, created_at
		FROM invoices WHERE studio_id = ?`
	args := []interface{}{studioID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		var dueDate sql.NullString
		if err := rows.Scan(&inv.InvoiceID, &inv.StudioID, &inv.ClientID, &inv.AmountCents,
			&inv.Status, &dueDate, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.DueDate = dueDate.String
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// UpdateInvoiceStatus sets the status of one invoice.
func (s *SQLiteStore) UpdateInvoiceStatus(ctx context.Context, invoiceID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET status = ? WHERE invoice_id = ?`, status, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("invoice %s not found", invoiceID)
	}
	return nil
}

// CreateAppointment inserts a calendar entry.
func (s *SQLiteStore) CreateAppointment(ctx context.Context, appt *domain.Appointment) error {
	var endsAt interface{}
	if !appt.EndsAt.IsZero() {
		endsAt = appt.EndsAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments (appointment_id, studio_id, client_id, title, starts_at, ends_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		appt.AppointmentID, appt.StudioID, nullableString(appt.ClientID), appt.Title,
		appt.StartsAt, endsAt, appt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// ListAppointments lists a studio's appointments within an optional time window.
func (s *SQLiteStore) ListAppointments(ctx context.Context, studioID string, from, to time.Time) ([]domain.Appointment, error) {
	q := `SELECT appointment_id, studio_id, client_id, title, starts_at, ends_at, created_at
		FROM appointments WHERE studio_id = ?`
	args := []interface{}{studioID}
	if !from.IsZero() {
		q += ` AND starts_at >= ?`
		args = append(args, from)
	}
	if !to.IsZero() {
		q += ` AND starts_at < ?`
		args = append(args, to)
	}
	q += ` ORDER BY starts_at ASC LIMIT 100`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var appts []domain.Appointment
	for rows.Next() {
		var a domain.Appointment
		var clientID sql.NullString
		var endsAt sql.NullTime
		if err := rows.Scan(&a.AppointmentID, &a.StudioID, &clientID, &a.Title, &a.StartsAt, &endsAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		a.ClientID = clientID.String
		if endsAt.Valid {
			a.EndsAt = endsAt.Time
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
