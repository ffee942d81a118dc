package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"forge/pkg/models"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// FragmentInput is the artifact bundle persisted alongside a RESULT message.
type FragmentInput struct {
	SandboxURL string
	Title      string
	Files      models.FileMap
}

// Create persists a message and, when fragment is non-nil, its fragment in one
// transaction so a crash cannot leave a RESULT message without its artifacts.
func (r *MessageRepo) Create(ctx context.Context, projectID int64, content string, role models.MessageRole, msgType models.MessageType, fragment *FragmentInput) (*models.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"INSERT INTO messages (project_id, content, role, type) VALUES (?, ?, ?, ?)",
		projectID, content, role, msgType)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	messageID, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	if fragment != nil {
		filesJSON, err := fragment.Files.Value()
		if err != nil {
			return nil, fmt.Errorf("failed to encode fragment files: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO fragments (message_id, sandbox_url, title, files) VALUES (?, ?, ?, ?)",
			messageID, fragment.SandboxURL, fragment.Title, filesJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to create fragment: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE projects SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", projectID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	return r.Get(ctx, messageID)
}

// Get loads a message with its fragment, if one is attached.
func (r *MessageRepo) Get(ctx context.Context, id int64) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT m.id, m.project_id, m.content, m.role, m.type, m.created_at,
		       f.id, f.sandbox_url, f.title, f.files, f.created_at
		FROM messages m
		LEFT JOIN fragments f ON f.message_id = m.id
		WHERE m.id = ?`, id)

	return scanMessage(row)
}

// ListRecent returns up to limit of the project's most recent messages in
// chronological order, the shape the agent conversation is seeded from.
func (r *MessageRepo) ListRecent(ctx context.Context, projectID int64, limit int) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, content, role, type, created_at
		FROM messages
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ProjectID, &msg.Content, &msg.Role, &msg.Type, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest-first from the query, chronological for the caller
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ListByProject returns the full chronological message history with fragments.
func (r *MessageRepo) ListByProject(ctx context.Context, projectID int64) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.project_id, m.content, m.role, m.type, m.created_at,
		       f.id, f.sandbox_url, f.title, f.files, f.created_at
		FROM messages m
		LEFT JOIN fragments f ON f.message_id = m.id
		WHERE m.project_id = ?
		ORDER BY m.created_at ASC, m.id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountByProject returns how many messages a project has, split by type.
func (r *MessageRepo) CountByProject(ctx context.Context, projectID int64, msgType models.MessageType) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE project_id = ? AND type = ?",
		projectID, msgType).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var msg models.Message
	var fragID sql.NullInt64
	var fragURL, fragTitle sql.NullString
	var fragFiles models.FileMap
	var fragCreated sql.NullTime

	err := row.Scan(&msg.ID, &msg.ProjectID, &msg.Content, &msg.Role, &msg.Type, &msg.CreatedAt,
		&fragID, &fragURL, &fragTitle, &fragFiles, &fragCreated)
	if err != nil {
		return nil, err
	}

	if fragID.Valid {
		msg.Fragment = &models.Fragment{
			ID:         fragID.Int64,
			MessageID:  msg.ID,
			SandboxURL: fragURL.String,
			Title:      fragTitle.String,
			Files:      fragFiles,
			CreatedAt:  fragCreated.Time,
		}
	}
	return &msg, nil
}
