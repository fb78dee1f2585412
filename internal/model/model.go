package model

import (
	"time"

	"gorm.io/datatypes"
)

// QueuedPhoto is one photo waiting in the local offline queue.
type QueuedPhoto struct {
	LocalID     string                             `gorm:"column:local_id;primaryKey;type:varchar(36)"`
	FileData    []byte                             `gorm:"column:file_data;type:blob"`
	FileName    string                             `gorm:"column:file_name;type:varchar(255)"`
	FileType    string                             `gorm:"column:file_type;type:varchar(100)"`
	FileSize    int64                              `gorm:"column:file_size"`
	ContactID   string                             `gorm:"column:contact_id;type:varchar(64);index"`
	ProjectID   *string                            `gorm:"column:project_id;type:varchar(64)"`
	TenantID    string                             `gorm:"column:tenant_id;type:varchar(64);index"`
	Metadata    datatypes.JSONType[PhotoMetadata] `gorm:"column:metadata"`
	Status      string                             `gorm:"column:status;type:varchar(16);default:'pending';index"`
	Attempts    int                                `gorm:"column:attempts;default:0"`
	LastAttempt *int64                             `gorm:"column:last_attempt"`
	LastError   *string                            `gorm:"column:last_error;type:text"`
	RemotePath  *string                            `gorm:"column:remote_path;type:varchar(512)"`
	RemoteURL   *string                            `gorm:"column:remote_url;type:varchar(1024)"`
	PurgeAfter  *int64                             `gorm:"column:purge_after;index"`
	CreatedAt   int64                              `gorm:"column:created_at;autoCreateTime:unixtime"`
	UpdatedAt   int64                              `gorm:"column:updated_at;autoCreateTime:unixtime;autoUpdateTime:unixtime"`
}

func (QueuedPhoto) TableName() string {
	return "queued_photos"
}

func (q *QueuedPhoto) HasPayload() bool {
	return len(q.FileData) > 0
}

// Payload rebuilds the upload payload from the stored bytes and descriptors.
func (q *QueuedPhoto) Payload() Payload {
	return Payload{
		Data:        q.FileData,
		Name:        q.FileName,
		ContentType: q.FileType,
	}
}

// PhotoMetadata is the capture context recorded on the device.
type PhotoMetadata struct {
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

func NewMetadata(m PhotoMetadata) datatypes.JSONType[PhotoMetadata] {
	return datatypes.NewJSONType(m)
}

// PhotoDeadLetter records entries that exhausted their automatic retries.
type PhotoDeadLetter struct {
	ID           int32  `gorm:"column:id;primaryKey;autoIncrement;not null"`
	CreatedAt    int64  `gorm:"column:created_at;autoCreateTime:unixtime"`
	LocalID      string `gorm:"column:local_id;type:varchar(36);index"`
	TenantID     string `gorm:"column:tenant_id;type:varchar(64)"`
	Attempts     int    `gorm:"column:attempts"`
	ErrorMessage string `gorm:"column:error_message;type:text"`
}

func (PhotoDeadLetter) TableName() string {
	return "photo_dead_letters"
}

// Photo is the row in the tenant's remote photos table.
type Photo struct {
	ID           string         `gorm:"column:id;primaryKey"`
	TenantID     string         `gorm:"column:tenant_id;index"`
	ContactID    string         `gorm:"column:contact_id;index"`
	ProjectID    *string        `gorm:"column:project_id"`
	FilePath     string         `gorm:"column:file_path"`
	FileURL      string         `gorm:"column:file_url"`
	ThumbnailURL *string        `gorm:"column:thumbnail_url"`
	FileName     string         `gorm:"column:file_name"`
	FileType     string         `gorm:"column:file_type"`
	FileSize     int64          `gorm:"column:file_size"`
	UploadedBy   string         `gorm:"column:uploaded_by"`
	Metadata     datatypes.JSON `gorm:"column:metadata"`
	DamageType   *string        `gorm:"column:damage_type"`
	Severity     *string        `gorm:"column:severity"`
	PhotoOrder   *int           `gorm:"column:photo_order"`
	ClaimID      *string        `gorm:"column:claim_id"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (Photo) TableName() string {
	return "photos"
}
