package drive

import "fmt"

const ImageUnavailable = "Image unavailable"

// ImageURLs lists the URL templates tried for an image, in order: direct view,
// thumbnail at the given width, then the preview embed.
func ImageURLs(fileID string, width int) []string {
	return []string{
		fmt.Sprintf("https://drive.google.com/uc?id=%s&export=view", fileID),
		fmt.Sprintf("https://drive.google.com/thumbnail?id=%s&sz=w%d", fileID, width),
		fmt.Sprintf("https://drive.google.com/file/d/%s/preview", fileID),
	}
}

// ImageSource walks the fallback URLs for one image. Each Fail moves to the
// next template; once every template has failed the image is unavailable.
type ImageSource struct {
	FileID string
	urls   []string
	index  int
}

func NewImageSource(fileID string, width int) *ImageSource {
	return &ImageSource{FileID: fileID, urls: ImageURLs(fileID, width)}
}

// URL is the template to render now; ok is false once all have failed.
func (s *ImageSource) URL() (string, bool) {
	if s.Unavailable() {
		return "", false
	}
	return s.urls[s.index], true
}

// Fail records a load failure of the current URL.
func (s *ImageSource) Fail() {
	if s.index < len(s.urls) {
		s.index++
	}
}

func (s *ImageSource) Unavailable() bool {
	return s.index >= len(s.urls)
}

// Render returns the URL to use or, after every template failed, the
// placeholder text.
func (s *ImageSource) Render() string {
	if u, ok := s.URL(); ok {
		return u
	}
	return ImageUnavailable
}
