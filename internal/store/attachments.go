package store

import (
	"context"
	"fmt"
)

const attachmentColumns = `id, org_id, entity_type, entity_id, object_key, file_name, content_type, size_bytes, kind, caption, uploaded_by, created_at`

func (s *PostgresStore) InsertAttachment(ctx context.Context, a Attachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, org_id, entity_type, entity_id, object_key, file_name, content_type, size_bytes, kind, caption, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.OrgID, a.EntityType, a.EntityID, a.ObjectKey, a.FileName, a.ContentType, a.SizeBytes, a.Kind, a.Caption, a.UploadedBy)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAttachment(ctx context.Context, orgID, attachmentID string) (Attachment, error) {
	var a Attachment
	err := s.db.QueryRowContext(ctx, `
		SELECT `+attachmentColumns+` FROM attachments WHERE org_id=$1 AND id=$2
	`, orgID, attachmentID).Scan(&a.ID, &a.OrgID, &a.EntityType, &a.EntityID, &a.ObjectKey, &a.FileName, &a.ContentType, &a.SizeBytes, &a.Kind, &a.Caption, &a.UploadedBy, &a.CreatedAt)
	if err != nil {
		return Attachment{}, err
	}
	return a, nil
}

func (s *PostgresStore) ListAttachments(ctx context.Context, orgID, entityType, entityID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attachmentColumns+` FROM attachments
		WHERE org_id=$1 AND entity_type=$2 AND entity_id=$3
		ORDER BY created_at DESC
	`, orgID, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	items := make([]Attachment, 0)
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.OrgID, &a.EntityType, &a.EntityID, &a.ObjectKey, &a.FileName, &a.ContentType, &a.SizeBytes, &a.Kind, &a.Caption, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, orgID, attachmentID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE org_id=$1 AND id=$2`, orgID, attachmentID)
	if err != nil {
		return false, fmt.Errorf("delete attachment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete attachment rows: %w", err)
	}
	return affected > 0, nil
}
