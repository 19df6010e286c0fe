package drive

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	FolderMimeType  = "application/vnd.google-apps.folder"
	ImageMimePrefix = "image/"

	DefaultRole = "Board Member"
	DateTBD     = "Date TBD"
)

var (
	ErrMissingAPIKey = errors.New("missing Google API key. Set GOOGLE_API_KEY (or REACT_APP_GOOGLE_API_KEY)")
	ErrMissingFolder = errors.New("missing Google Drive folder ID or URL")
)

// File is the subset of a Drive file the site reads. It is never cached.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

func (f File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

func (f File) IsImage() bool {
	return strings.HasPrefix(f.MimeType, ImageMimePrefix)
}

// TrimExtension drops the final extension, if any.
func TrimExtension(filename string) string {
	ext := path.Ext(filename)
	if ext == "" || ext == "." || ext == filename || strings.Contains(ext, "/") {
		return filename
	}
	return strings.TrimSuffix(filename, ext)
}

// SplitName separates "Primary-Secondary.ext" on the first hyphen. Further
// hyphens stay in the secondary part. Without a hyphen the whole filename is
// the primary label and fallback is the secondary one.
func SplitName(filename, fallback string) (string, string) {
	base := TrimExtension(filename)

	primary, secondary, found := strings.Cut(base, "-")
	if !found {
		return filename, fallback
	}

	return strings.TrimSpace(primary), strings.TrimSpace(secondary)
}

type Member struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

func MemberFromFile(f File) Member {
	name, role := SplitName(f.Name, DefaultRole)
	return Member{FileID: f.ID, Name: name, Role: role}
}

var eventDatePattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{2,4})`)

// EventFolder is a past-event folder named "Event name-MM/DD/YY".
type EventFolder struct {
	Name string `json:"eventName"`
	Date string `json:"formattedDate"`
}

// ParseEventFolder splits a past-event folder name into its event name and a
// long-form date. Two-digit years are read as 20xx.
func ParseEventFolder(folderName string) EventFolder {
	parts := strings.Split(folderName, "-")
	if len(parts) < 2 {
		return EventFolder{Name: folderName, Date: DateTBD}
	}

	event := EventFolder{Name: strings.TrimSpace(parts[0]), Date: DateTBD}

	m := eventDatePattern.FindStringSubmatch(strings.TrimSpace(parts[1]))
	if m == nil {
		return event
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return event
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	event.Date = date.Format("January 2, 2006")

	return event
}

// FileViewURL opens a file in Drive's viewer.
func FileViewURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", fileID)
}
