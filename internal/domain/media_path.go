package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// MediaKind distinguishes the two generated artefacts.
type MediaKind string

// Media kinds
const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Extension returns the file extension stored for the kind.
func (k MediaKind) Extension() string {
	if k == MediaKindVideo {
		return "mp4"
	}
	return "png"
}

// ContentType returns the MIME type stored for the kind.
func (k MediaKind) ContentType() string {
	if k == MediaKindVideo {
		return "video/mp4"
	}
	return "image/png"
}

// MediaPath builds the deterministic storage path
// {entityType}s/{userId}/{entityId}/{image|video}.{ext}.
func MediaPath(entityType EntityType, userID, entityID uuid.UUID, kind MediaKind) string {
	return fmt.Sprintf("%s/%s/%s/%s.%s", entityType.Plural(), userID, entityID, kind, kind.Extension())
}

// MediaPath returns the storage path for the given kind of this task's media.
func (t *QueueTask) MediaPath(kind MediaKind) string {
	return MediaPath(t.EntityType, t.UserID, t.EntityID, kind)
}
