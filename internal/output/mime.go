package output

// mimeTypes is the fixed extension lookup used for collected files. Unknown
// extensions fall back to a generic binary type.
var mimeTypes = map[string]string{
	"txt":  "text/plain",
	"json": "application/json",
	"csv":  "text/csv",
	"html": "text/html",
	"xml":  "application/xml",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"pdf":  "application/pdf",
	"mp4":  "video/mp4",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"zip":  "application/zip",
	"gz":   "application/gzip",
}

const defaultMimeType = "application/octet-stream"

// MimeTypeForExtension maps a lowercase, dot-free extension to a MIME type.
func MimeTypeForExtension(ext string) string {
	if mt, ok := mimeTypes[ext]; ok {
		return mt
	}
	return defaultMimeType
}
