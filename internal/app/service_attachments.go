package app

import (
	"context"
	"net/http"
	"strings"

	"rescueops/api/internal/rbac"
	"rescueops/api/internal/storage"
	"rescueops/api/internal/store"
	"rescueops/api/internal/util"
)

// maxAttachmentBytes caps declared upload sizes at 25 MiB.
const maxAttachmentBytes = 25 << 20

var attachmentEntityTypes = map[string]bool{
	"dog":            true,
	"transport":      true,
	"contact":        true,
	"medical_record": true,
}

type UploadRequest struct {
	EntityType  string `json:"entityType"`
	EntityID    string `json:"entityId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	Kind        string `json:"kind"`
	Caption     string `json:"caption"`
}

// CreateUploadURL reserves an object key and returns a presigned PUT URL.
// The client uploads the bytes directly, then confirms to record the row.
func (s *Service) CreateUploadURL(ctx context.Context, orgID string, in UploadRequest, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage is not configured", nil)
	}
	if !attachmentEntityTypes[in.EntityType] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown entity type", map[string]any{"entityType": in.EntityType})
	}
	if in.EntityID == "" || strings.TrimSpace(in.FileName) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "entityId and fileName are required", nil)
	}
	if in.SizeBytes <= 0 || in.SizeBytes > maxAttachmentBytes {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file size out of range", map[string]any{"maxBytes": maxAttachmentBytes})
	}

	key := storage.NewObjectKey(orgID)
	url, err := s.storage.PresignUpload(ctx, key, in.ContentType)
	if err != nil {
		return nil, err
	}

	return map[string]any{"objectKey": key, "uploadUrl": url}, nil
}

type ConfirmUpload struct {
	ObjectKey   string `json:"objectKey"`
	EntityType  string `json:"entityType"`
	EntityID    string `json:"entityId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	Kind        string `json:"kind"`
	Caption     string `json:"caption"`
}

func (s *Service) ConfirmAttachment(ctx context.Context, orgID string, in ConfirmUpload, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	if in.ObjectKey == "" || !strings.HasPrefix(in.ObjectKey, "orgs/"+orgID+"/") {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "object key does not belong to this organization", nil)
	}
	if !attachmentEntityTypes[in.EntityType] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown entity type", map[string]any{"entityType": in.EntityType})
	}

	att := store.Attachment{
		ID:          util.NewID("att"),
		OrgID:       orgID,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		FileName:    in.FileName,
		ObjectKey:   in.ObjectKey,
		ContentType: in.ContentType,
		SizeBytes:   in.SizeBytes,
		Kind:        firstNonEmpty(in.Kind, "document"),
		Caption:     in.Caption,
		UploadedBy:  session.UserID,
	}
	if err := s.store.InsertAttachment(ctx, att); err != nil {
		return nil, err
	}

	s.audit(ctx, orgID, "attachment", att.ID, "attachment.created",
		session.UserName+" attached "+att.FileName,
		map[string]any{"fileName": att.FileName, "entityType": att.EntityType, "entityId": att.EntityID}, session.UserID)

	return attachmentPayload(att), nil
}

func (s *Service) ListAttachments(ctx context.Context, orgID, entityType, entityID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	attachments, err := s.store.ListAttachments(ctx, orgID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(attachments))
	for _, att := range attachments {
		items = append(items, attachmentPayload(att))
	}
	return map[string]any{"attachments": items}, nil
}

func (s *Service) AttachmentDownloadURL(ctx context.Context, orgID, attachmentID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage is not configured", nil)
	}
	att, err := s.store.GetAttachment(ctx, orgID, attachmentID)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.PresignDownload(ctx, att.ObjectKey)
	if err != nil {
		return nil, err
	}
	return map[string]any{"downloadUrl": url, "fileName": att.FileName, "contentType": att.ContentType}, nil
}

// DeleteAttachment removes the stored object first, then the row; a missing
// object is not an error since the row is the source of truth.
func (s *Service) DeleteAttachment(ctx context.Context, orgID, attachmentID string, session Session) error {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return err
	}
	att, err := s.store.GetAttachment(ctx, orgID, attachmentID)
	if err != nil {
		return err
	}
	if s.storage != nil {
		if err := s.storage.Delete(ctx, att.ObjectKey); err != nil {
			return err
		}
	}
	deleted, err := s.store.DeleteAttachment(ctx, orgID, attachmentID)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("Attachment")
	}
	s.audit(ctx, orgID, "attachment", attachmentID, "attachment.deleted",
		session.UserName+" removed "+att.FileName,
		map[string]any{"fileName": att.FileName}, session.UserID)
	return nil
}

func attachmentPayload(att store.Attachment) map[string]any {
	return map[string]any{
		"id":          att.ID,
		"entityType":  att.EntityType,
		"entityId":    att.EntityID,
		"fileName":    att.FileName,
		"contentType": att.ContentType,
		"sizeBytes":   att.SizeBytes,
		"kind":        att.Kind,
		"caption":     att.Caption,
		"uploadedBy":  att.UploadedBy,
		"createdAt":   att.CreatedAt,
	}
}
