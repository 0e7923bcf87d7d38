package mimetypes

import "mime"

type MIME string

// Media types a message may declare for its media reference. The gateway
// never sees the bytes (uploads are handled elsewhere), so the declared type
// is checked against this list instead of being sniffed.
const (
	TextPlain MIME = "text/plain"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWebP MIME = "image/webp"

	AudioOgg  MIME = "audio/ogg"
	AudioMPEG MIME = "audio/mpeg"
	AudioWebM MIME = "audio/webm"

	VideoMP4  MIME = "video/mp4"
	VideoWebM MIME = "video/webm"

	ApplicationPDF MIME = "application/pdf"
)

var allowed = map[MIME]struct{}{
	TextPlain:      {},
	ImagePNG:       {},
	ImageJPEG:      {},
	ImageGIF:       {},
	ImageWebP:      {},
	AudioOgg:       {},
	AudioMPEG:      {},
	AudioWebM:      {},
	VideoMP4:       {},
	VideoWebM:      {},
	ApplicationPDF: {},
}

// Allowed reports whether the declared media type parses and belongs to the
// allow-list. Parameters (e.g. "; charset=utf-8") are ignored.
func Allowed(declared string) bool {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return false
	}
	_, ok := allowed[MIME(mt)]
	return ok
}
