package model

const (
	MaxProfilePictureSizeBytes = 5 * 1024 * 1024 // 5MB
	ProfilePictureSize         = 200
	ProfilePictureFolder       = "profile-pictures"
	ProfilePictureExt          = ".jpg"
	ProfilePictureCacheControl = "public, max-age=31536000" // 1 year
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

var (
	ErrFileTooLarge     = newError(KindValidation, "FILE_TOO_LARGE", "File exceeds 5MB limit")
	ErrInvalidImageType = newError(KindValidation, "INVALID_IMAGE_TYPE", "Only JPEG, PNG, GIF, WebP are allowed")
	ErrInvalidImage     = newError(KindValidation, "INVALID_IMAGE", "Image could not be decoded")
)

// UploadResult is the stored object location. URL is public, Key is the
// bucket key kept for later deletes.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}
