package drive

import (
	"regexp"
	"strings"
)

// FolderMatcher pulls a folder ID out of one shape of folder reference.
type FolderMatcher struct {
	Name  string
	match func(string) string
}

// Match returns the extracted ID, or "" if the input has a different shape.
func (m FolderMatcher) Match(input string) string {
	return m.match(input)
}

var (
	bareIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}$`)
	foldersPattern = regexp.MustCompile(`/folders/([A-Za-z0-9_-]+)`)
	folderPattern  = regexp.MustCompile(`/folder/([A-Za-z0-9_-]+)`)
	idParamPattern = regexp.MustCompile(`[?&]id=([A-Za-z0-9_-]+)`)
)

func submatch(re *regexp.Regexp) func(string) string {
	return func(input string) string {
		m := re.FindStringSubmatch(input)
		if len(m) < 2 {
			return ""
		}
		return m[1]
	}
}

// FolderMatchers are tried in order; the first one that matches wins.
var FolderMatchers = []FolderMatcher{
	{
		Name: "bare-id",
		match: func(input string) string {
			if strings.Contains(input, "/") || !bareIDPattern.MatchString(input) {
				return ""
			}
			return input
		},
	},
	{Name: "folders-path", match: submatch(foldersPattern)},
	{Name: "folder-path", match: submatch(folderPattern)},
	{Name: "id-param", match: submatch(idParamPattern)},
}

// ExtractFolderID resolves a folder reference (a raw ID or a Drive URL) to a
// folder ID. It returns "" when nothing matches.
func ExtractFolderID(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	for _, m := range FolderMatchers {
		if id := m.Match(trimmed); id != "" {
			return id
		}
	}

	return ""
}

// FolderURL is the browsable Drive URL for a folder.
func FolderURL(folderID string) string {
	return "https://drive.google.com/drive/folders/" + folderID
}
