package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitRecipient(t *testing.T) {
	tests := []struct {
		name    string
		limit   RecipientLimit
		current int
		wantErr bool
	}{
		{"below limit", 2, 1, false},
		{"at limit", 2, 2, true},
		{"above limit", 2, 5, true},
		{"zero limit rejects first", 0, 0, true},
		{"unlimited with zero", UnlimitedRecipients, 0, false},
		{"unlimited with huge count", UnlimitedRecipients, 100000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AdmitRecipient("recipient.admit", tt.limit, tt.current)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, EQUOTA, ErrorCode(err))

			var detail *QuotaExceededError
			require.True(t, errors.As(err, &detail))
			assert.Equal(t, ScopeRecipients, detail.Scope)
			assert.Equal(t, tt.current, detail.Current)
			assert.Equal(t, int(tt.limit), detail.Limit)
		})
	}
}

func TestAdmitContent_ValidationOrder(t *testing.T) {
	// A snapshot that is full everywhere, on a frozen vault, with an
	// oversized file: the size check must win because it runs first.
	full := QuotaSnapshot{
		PhotosTotal:    PhotosTotalMax,
		PhotosPerAlbum: [AlbumCount]int{10, 10, 10, 10},
		Videos:         VideosMax,
		Messages:       MessagesMax,
	}

	_, err := AdmitContent("content.admit", full, ContentTypeVideo, 0, VideoFileMaxBytes+1, VaultStatusDelivered)
	assert.Equal(t, ETOOLARGE, ErrorCode(err))

	// With a valid size, the type ceiling wins over the frozen state.
	_, err = AdmitContent("content.admit", full, ContentTypeVideo, 0, 1024, VaultStatusDelivered)
	assert.Equal(t, EQUOTA, ErrorCode(err))

	// With quota available, the frozen state is the last check standing.
	_, err = AdmitContent("content.admit", QuotaSnapshot{}, ContentTypeVideo, 0, 1024, VaultStatusDelivered)
	assert.Equal(t, EFROZEN, ErrorCode(err))
}

func TestAdmitContent_FileSize(t *testing.T) {
	tests := []struct {
		name        string
		contentType ContentType
		sizeBytes   int64
		wantCode    string
	}{
		{"photo at limit", ContentTypePhoto, PhotoFileMaxBytes, ""},
		{"photo over limit", ContentTypePhoto, PhotoFileMaxBytes + 1, ETOOLARGE},
		{"video at limit", ContentTypeVideo, VideoFileMaxBytes, ""},
		{"video 150MB", ContentTypeVideo, 150 * 1024 * 1024, ETOOLARGE},
		{"message has no size cap", ContentTypeMessage, 1 << 40, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AdmitContent("content.admit", QuotaSnapshot{}, tt.contentType, 1, tt.sizeBytes, VaultStatusDraft)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, ErrorCode(err))
		})
	}
}

func TestAdmitContent_VideoRejectCarriesMaxBytes(t *testing.T) {
	_, err := AdmitContent("content.admit", QuotaSnapshot{}, ContentTypeVideo, 0, 150*1024*1024, VaultStatusDraft)
	require.Error(t, err)

	var detail *FileTooLargeError
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, ContentTypeVideo, detail.ContentType)
	assert.Equal(t, int64(104857600), detail.MaxBytes)
}

func TestAdmitContent_AlbumCeiling(t *testing.T) {
	// Album 1 full, album 2 empty.
	snapshot := QuotaSnapshot{
		PhotosTotal:    10,
		PhotosPerAlbum: [AlbumCount]int{10, 0, 0, 0},
	}

	_, err := AdmitContent("content.admit", snapshot, ContentTypePhoto, 1, 2*1024*1024, VaultStatusDraft)
	require.Error(t, err)
	assert.Equal(t, EQUOTA, ErrorCode(err))

	var detail *QuotaExceededError
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, ScopeAlbum, detail.Scope)
	assert.Equal(t, 1, detail.AlbumNumber)
	assert.Equal(t, 10, detail.Limit)
	assert.Equal(t, 10, detail.Current)

	order, err := AdmitContent("content.admit", snapshot, ContentTypePhoto, 2, 2*1024*1024, VaultStatusDraft)
	require.NoError(t, err)
	assert.Equal(t, 0, order, "order is the count within the admitted album")
}

func TestAdmitContent_InvalidAlbum(t *testing.T) {
	for _, album := range []int{0, -1, 5, 100} {
		_, err := AdmitContent("content.admit", QuotaSnapshot{}, ContentTypePhoto, album, 1024, VaultStatusDraft)
		assert.Equal(t, EINVALID, ErrorCode(err), "album %d", album)
	}
}

func TestAdmitContent_OrderAssignment(t *testing.T) {
	snapshot := QuotaSnapshot{
		PhotosTotal:    7,
		PhotosPerAlbum: [AlbumCount]int{3, 4, 0, 0},
		Videos:         1,
		Messages:       4,
	}

	order, err := AdmitContent("content.admit", snapshot, ContentTypePhoto, 1, 1024, VaultStatusDraft)
	require.NoError(t, err)
	assert.Equal(t, 3, order)

	order, err = AdmitContent("content.admit", snapshot, ContentTypePhoto, 2, 1024, VaultStatusDraft)
	require.NoError(t, err)
	assert.Equal(t, 4, order)

	order, err = AdmitContent("content.admit", snapshot, ContentTypeVideo, 0, 1024, VaultStatusDraft)
	require.NoError(t, err)
	assert.Equal(t, 1, order, "videos order is vault-wide")

	order, err = AdmitContent("content.admit", snapshot, ContentTypeMessage, 0, 0, VaultStatusDraft)
	require.NoError(t, err)
	assert.Equal(t, 4, order, "messages order is vault-wide")
}

func TestAdmitContent_TypeCeilings(t *testing.T) {
	tests := []struct {
		name        string
		contentType ContentType
		snapshot    QuotaSnapshot
		wantScope   QuotaScope
	}{
		{"videos full", ContentTypeVideo, QuotaSnapshot{Videos: VideosMax}, ScopeVideos},
		{"messages full", ContentTypeMessage, QuotaSnapshot{Messages: MessagesMax}, ScopeMessages},
		{
			"photos full vault-wide",
			ContentTypePhoto,
			QuotaSnapshot{PhotosTotal: PhotosTotalMax, PhotosPerAlbum: [AlbumCount]int{10, 10, 10, 10}},
			ScopePhotos,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AdmitContent("content.admit", tt.snapshot, tt.contentType, 1, 1024, VaultStatusDraft)
			require.Error(t, err)

			var detail *QuotaExceededError
			require.True(t, errors.As(err, &detail))
			assert.Equal(t, tt.wantScope, detail.Scope)
		})
	}
}

func TestGateFinalize(t *testing.T) {
	active := &Account{SubscriptionStatus: SubscriptionStatusActive}
	oneMessage := QuotaSnapshot{Messages: 1}

	tests := []struct {
		name     string
		status   VaultStatus
		account  *Account
		snapshot QuotaSnapshot
		wantCode string
	}{
		{"active with content", VaultStatusDraft, active, oneMessage, ""},
		{"inactive subscription", VaultStatusDraft, &Account{SubscriptionStatus: SubscriptionStatusInactive}, oneMessage, EPAYMENT},
		{"expired subscription", VaultStatusDraft, &Account{SubscriptionStatus: SubscriptionStatusExpired}, oneMessage, EPAYMENT},
		{"inactive wins even with content", VaultStatusDraft, &Account{SubscriptionStatus: SubscriptionStatusInactive}, QuotaSnapshot{PhotosTotal: 40}, EPAYMENT},
		{"empty vault", VaultStatusDraft, active, QuotaSnapshot{}, EEMPTY},
		{"already delivered", VaultStatusDelivered, active, oneMessage, EFROZEN},
		{"archived", VaultStatusArchived, active, oneMessage, EFROZEN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := GateFinalize("vault.finalize", tt.status, tt.account, tt.snapshot)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, ErrorCode(err))
		})
	}
}

func TestRecipientLimit_Remaining(t *testing.T) {
	assert.Equal(t, 3, RecipientLimit(5).Remaining(2))
	assert.Equal(t, 0, RecipientLimit(5).Remaining(5))
	assert.Equal(t, 0, RecipientLimit(5).Remaining(9), "over-ceiling counts clamp to zero")
	assert.Equal(t, -1, UnlimitedRecipients.Remaining(123))
}
