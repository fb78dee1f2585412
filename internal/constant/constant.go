package constant

const (
	PhotoStatusPending   = "pending"
	PhotoStatusSyncing   = "syncing"
	PhotoStatusCompleted = "completed"
	PhotoStatusFailed    = "failed"
)

const (
	StorageModeLocal = "local"
	StorageModeS3    = "s3"
)

// MissingPayloadError is stored on queue entries that were written without
// their image bytes and can therefore never be uploaded.
const MissingPayloadError = "photo data missing from offline queue; please capture the photo again"

const ThumbnailSuffix = ".thumb.webp"
