package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port interface.
// Per-account progress lives on the account_objectives association; the
// objectives table holds the shared definition and the last written values.
type AccountRepo struct {
	db     *DB
	cipher tokenCipher
}

// NewAccountRepo creates an AccountRepo. key must be 32 bytes to encrypt tokens
// with AES-256-GCM, or nil to store them as given.
func NewAccountRepo(db *DB, key []byte) *AccountRepo {
	return &AccountRepo{db: db, cipher: tokenCipher{key: key}}
}

// Create inserts a new account with no objectives.
func (r *AccountRepo) Create(ctx context.Context, account model.Account) error {
	const query = `INSERT INTO accounts (name, token, has_been_synced_once, last_sync_time) VALUES (?, ?, ?, ?)`

	token, err := r.cipher.seal(account.Token)
	if err != nil {
		return fmt.Errorf("encrypt token for account %s: %w", account.Name, err)
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		account.Name, token, boolToInt(account.HasBeenSyncedOnce), formatTime(account.LastSyncTime),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("create account %s: %w", account.Name, driven.ErrAccountAlreadyExists)
		}
		return fmt.Errorf("create account %s: %w", account.Name, err)
	}

	return nil
}

// Exists reports whether an account with the given name is stored.
func (r *AccountRepo) Exists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE name = ?)`

	var exists int
	if err := r.db.Reader.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account %s: %w", name, err)
	}
	return exists != 0, nil
}

// Get returns the account with its objectives.
func (r *AccountRepo) Get(ctx context.Context, name string) (*model.Account, error) {
	const query = `SELECT name, token, has_been_synced_once, last_sync_time FROM accounts WHERE name = ?`

	account, err := r.scanAccount(r.db.Reader.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account %s: %w", name, driven.ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", name, err)
	}

	byAccount, err := r.objectives(ctx, r.db.Reader, name)
	if err != nil {
		return nil, err
	}
	account.Objectives = byAccount[name]

	return account, nil
}

// List returns every account with its objectives, ordered by name.
func (r *AccountRepo) List(ctx context.Context) ([]model.Account, error) {
	const query = `SELECT name, token, has_been_synced_once, last_sync_time FROM accounts ORDER BY name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := r.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	byAccount, err := r.objectives(ctx, r.db.Reader, "")
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].Objectives = byAccount[accounts[i].Name]
	}

	return accounts, nil
}

// Delete removes an account. Its objective associations cascade.
func (r *AccountRepo) Delete(ctx context.Context, name string) error {
	const query = `DELETE FROM accounts WHERE name = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete account %s: %w", name, driven.ErrAccountNotFound)
	}

	return nil
}

// Token returns the decrypted API token for the account.
func (r *AccountRepo) Token(ctx context.Context, name string) (string, error) {
	const query = `SELECT token FROM accounts WHERE name = ?`

	var stored string
	err := r.db.Reader.QueryRowContext(ctx, query, name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get token for account %s: %w", name, driven.ErrAccountNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get token for account %s: %w", name, err)
	}

	token, err := r.cipher.open(stored)
	if err != nil {
		return "", fmt.Errorf("decrypt token for account %s: %w", name, err)
	}
	return token, nil
}

// UpdateSync overwrites sync metadata and diffs the stored association set
// against account.Objectives by objective id, all in one transaction:
// ids no longer present are unlinked, ids present on both sides are overwritten,
// new ids are linked after their objective row is created or refreshed.
func (r *AccountRepo) UpdateSync(ctx context.Context, account model.Account) error {
	for _, o := range account.Objectives {
		if !o.Endpoint.Valid() {
			return fmt.Errorf("update account %s: objective %d has invalid endpoint %q", account.Name, o.ID, o.Endpoint)
		}
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const updateAccount = `UPDATE accounts SET has_been_synced_once = ?, last_sync_time = ? WHERE name = ?`
	result, err := tx.ExecContext(ctx, updateAccount,
		boolToInt(account.HasBeenSyncedOnce), formatTime(account.LastSyncTime), account.Name,
	)
	if err != nil {
		return fmt.Errorf("update account %s: %w", account.Name, err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	} else if rows == 0 {
		return fmt.Errorf("update account %s: %w", account.Name, driven.ErrAccountNotFound)
	}

	existing, err := linkedObjectiveIDs(ctx, tx, account.Name)
	if err != nil {
		return err
	}

	incoming := make(map[int]model.Objective, len(account.Objectives))
	for _, o := range account.Objectives {
		incoming[o.ID] = o
	}

	const unlink = `DELETE FROM account_objectives WHERE account_name = ? AND objective_id = ?`
	for id := range existing {
		if _, ok := incoming[id]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, unlink, account.Name, id); err != nil {
			return fmt.Errorf("unlink objective %d from account %s: %w", id, account.Name, err)
		}
	}

	const upsertObjective = `
		INSERT INTO objectives (id, title, track, acclaim, progress_current, progress_complete, claimed, api_endpoint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			track = excluded.track,
			acclaim = excluded.acclaim,
			progress_current = excluded.progress_current,
			progress_complete = excluded.progress_complete,
			claimed = excluded.claimed,
			api_endpoint = excluded.api_endpoint
	`
	const updateLink = `
		UPDATE account_objectives
		SET api_endpoint = ?, progress_current = ?, progress_complete = ?, claimed = ?
		WHERE account_name = ? AND objective_id = ?
	`
	const insertLink = `
		INSERT INTO account_objectives (account_name, objective_id, api_endpoint, progress_current, progress_complete, claimed)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	for _, o := range account.Objectives {
		if incoming[o.ID] != o {
			// A later duplicate of the same id wins; skip earlier copies.
			continue
		}

		if _, err := tx.ExecContext(ctx, upsertObjective,
			o.ID, o.Title, string(o.Track), o.Acclaim, o.ProgressCurrent, o.ProgressComplete,
			boolToInt(o.Claimed), string(o.Endpoint),
		); err != nil {
			return fmt.Errorf("upsert objective %d: %w", o.ID, err)
		}

		query, args := insertLink, []any{
			account.Name, o.ID, string(o.Endpoint), o.ProgressCurrent, o.ProgressComplete, boolToInt(o.Claimed),
		}
		if existing[o.ID] {
			query, args = updateLink, []any{
				string(o.Endpoint), o.ProgressCurrent, o.ProgressComplete, boolToInt(o.Claimed), account.Name, o.ID,
			}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("link objective %d to account %s: %w", o.ID, account.Name, err)
		}
		existing[o.ID] = true
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync for account %s: %w", account.Name, err)
	}

	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func linkedObjectiveIDs(ctx context.Context, q queryer, name string) (map[int]bool, error) {
	const query = `SELECT objective_id FROM account_objectives WHERE account_name = ?`

	rows, err := q.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("query objectives linked to account %s: %w", name, err)
	}
	defer rows.Close()

	ids := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan objective id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objective ids: %w", err)
	}
	return ids, nil
}

// objectives loads association rows grouped by account name. An empty name
// loads every account.
func (r *AccountRepo) objectives(ctx context.Context, q queryer, name string) (map[string][]model.Objective, error) {
	query := `
		SELECT ao.account_name, o.id, o.title, o.track, o.acclaim,
		       ao.progress_current, ao.progress_complete, ao.claimed, ao.api_endpoint
		FROM account_objectives ao
		JOIN objectives o ON o.id = ao.objective_id
	`
	var args []any
	if name != "" {
		query += ` WHERE ao.account_name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY ao.account_name, ao.api_endpoint, o.id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query objectives: %w", err)
	}
	defer rows.Close()

	byAccount := make(map[string][]model.Objective)
	for rows.Next() {
		o, err := scanObjective(rows)
		if err != nil {
			return nil, fmt.Errorf("scan objective: %w", err)
		}
		byAccount[o.AccountName] = append(byAccount[o.AccountName], *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objectives: %w", err)
	}

	return byAccount, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *AccountRepo) scanAccount(s scanner) (*model.Account, error) {
	var account model.Account
	var stored string
	var synced int
	var lastSync sql.NullString

	if err := s.Scan(&account.Name, &stored, &synced, &lastSync); err != nil {
		return nil, err
	}

	token, err := r.cipher.open(stored)
	if err != nil {
		return nil, fmt.Errorf("decrypt token for account %s: %w", account.Name, err)
	}
	account.Token = token
	account.HasBeenSyncedOnce = synced != 0

	if lastSync.Valid && lastSync.String != "" {
		account.LastSyncTime, err = parseTime(lastSync.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_sync_time for account %s: %w", account.Name, err)
		}
	}

	return &account, nil
}

func scanObjective(s scanner) (*model.Objective, error) {
	var o model.Objective
	var track, endpoint string
	var claimed int

	err := s.Scan(
		&o.AccountName, &o.ID, &o.Title, &track, &o.Acclaim,
		&o.ProgressCurrent, &o.ProgressComplete, &claimed, &endpoint,
	)
	if err != nil {
		return nil, err
	}

	o.Track = model.Track(track)
	o.Endpoint = model.Endpoint(endpoint)
	o.Claimed = claimed != 0

	return &o, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatTime renders t for a TEXT column; the zero time is stored as NULL.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}
