// Package domain contains core business types and interfaces.
//
// This file defines the fixed content ceilings, the quota snapshot, and the
// pure admission decisions. Recipient ceilings vary by plan; content
// ceilings are fixed system-wide regardless of plan. That asymmetry is
// intentional and preserved.
package domain

// Fixed system ceilings. These apply to every vault on every plan.
const (
	PhotosTotalMax    = 40
	PhotosPerAlbumMax = 10
	AlbumCount        = 4
	VideosMax         = 2
	MessagesMax       = 5

	PhotoFileMaxBytes = 5 * 1024 * 1024   // 5 MiB
	VideoFileMaxBytes = 100 * 1024 * 1024 // 100 MiB
)

// QuotaSnapshot holds the recomputed-from-storage counters used for every
// admission decision. It is derived, never persisted, and never drifts
// independently of the rows it counts.
type QuotaSnapshot struct {
	Recipients     int
	PhotosTotal    int
	PhotosPerAlbum [AlbumCount]int // index 0 is album 1
	Videos         int
	Messages       int
}

// InAlbum returns the photo count of the given album number (1-based).
// Out-of-range album numbers report zero.
func (s QuotaSnapshot) InAlbum(albumNumber int) int {
	if !ValidAlbum(albumNumber) {
		return 0
	}
	return s.PhotosPerAlbum[albumNumber-1]
}

// CountOfType returns the vault-wide count for a content type.
func (s QuotaSnapshot) CountOfType(t ContentType) int {
	switch t {
	case ContentTypePhoto:
		return s.PhotosTotal
	case ContentTypeVideo:
		return s.Videos
	case ContentTypeMessage:
		return s.Messages
	}
	return 0
}

// ContentTotal returns the total number of content items across all types.
func (s QuotaSnapshot) ContentTotal() int {
	return s.PhotosTotal + s.Videos + s.Messages
}

// typeCeiling returns the vault-wide ceiling for a content type.
func typeCeiling(t ContentType) int {
	switch t {
	case ContentTypePhoto:
		return PhotosTotalMax
	case ContentTypeVideo:
		return VideosMax
	case ContentTypeMessage:
		return MessagesMax
	}
	return 0
}

// scopeFor maps a content type to its quota scope.
func scopeFor(t ContentType) QuotaScope {
	switch t {
	case ContentTypePhoto:
		return ScopePhotos
	case ContentTypeVideo:
		return ScopeVideos
	default:
		return ScopeMessages
	}
}

// AdmitContent is the pure content admission decision. On success it returns
// the order to assign: the current count within the admitted scope (album
// for photos, vault-wide for videos and messages) before insertion.
//
// Checks run in a fixed sequence and the first failure wins: file size, then
// the type-level ceiling, then (photos only) album validity and the album
// ceiling, then the vault-state check. Callers must hold the scope lock so
// the decision and the subsequent insert form one atomic unit.
func AdmitContent(op string, snapshot QuotaSnapshot, contentType ContentType, albumNumber int, sizeBytes int64, status VaultStatus) (int, error) {
	if !contentType.IsValid() {
		return 0, Invalid(op, "unknown content type")
	}

	if max := contentType.MaxFileBytes(); max > 0 && sizeBytes > max {
		return 0, FileTooLarge(op, contentType, sizeBytes, max)
	}

	ceiling := typeCeiling(contentType)
	if current := snapshot.CountOfType(contentType); current >= ceiling {
		return 0, QuotaExceeded(op, scopeFor(contentType), current, ceiling)
	}

	order := snapshot.CountOfType(contentType)
	if contentType == ContentTypePhoto {
		if !ValidAlbum(albumNumber) {
			return 0, Invalid(op, "album number must be between 1 and 4")
		}
		if current := snapshot.InAlbum(albumNumber); current >= PhotosPerAlbumMax {
			return 0, AlbumQuotaExceeded(op, albumNumber, current, PhotosPerAlbumMax)
		}
		order = snapshot.InAlbum(albumNumber)
	}

	if status.IsFrozen() {
		return 0, Frozen(op)
	}

	return order, nil
}

// AdmitRecipient is the pure recipient admission decision: admit iff the
// plan is unlimited or the current count is below the ceiling. Callers must
// hold the account scope lock so the decision and the insert are atomic.
func AdmitRecipient(op string, limit RecipientLimit, current int) error {
	if limit.Allows(current) {
		return nil
	}
	return QuotaExceeded(op, ScopeRecipients, current, int(limit))
}

// GateFinalize is the pure subscription-gate decision for a vault's
// draft -> finalized transition. It requires an active subscription
// regardless of content count, then at least one content item, and rejects
// vaults already past delivery.
func GateFinalize(op string, status VaultStatus, account *Account, snapshot QuotaSnapshot) error {
	if !account.HasActiveSubscription() {
		return SubscriptionRequired(op)
	}
	if snapshot.ContentTotal() == 0 {
		return EmptyVault(op)
	}
	if status.IsFrozen() {
		return Frozen(op)
	}
	return nil
}
