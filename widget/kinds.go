package widget

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vasaviseattle/site-tools/drive"
	drivehttp "github.com/vasaviseattle/site-tools/drive/http"
	"github.com/vasaviseattle/site-tools/logger"
)

const (
	boardThumbnailWidth   = 400
	galleryThumbnailWidth = 800
	eventThumbnailWidth   = 300

	maxBoardMembers  = 50
	maxGalleryImages = 100

	eventFolderConcurrency = 4
)

type BoardMember struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Images []string `json:"images"`
}

type GalleryImage struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Images   []string `json:"images"`
}

type FinancialDocument struct {
	ID           string `json:"id"`
	Title        string `json:"name"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	ViewURL      string `json:"viewUrl"`
}

type PastEvent struct {
	ID         string `json:"id"`
	FolderName string `json:"name"`
	EventName  string `json:"eventName"`
	Date       string `json:"formattedDate"`
	FolderURL  string `json:"folderUrl"`
	ImageID    string `json:"imageId,omitempty"`
	ImageName  string `json:"imageName,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	PhotoCount int    `json:"photoCount"`
}

var BoardMembers = Kind{
	Name:      "board-members",
	FolderKey: "BOARD_MEMBERS_FOLDER",
	Load: func(ctx context.Context, client drivehttp.Client, folderID string, _ logger.Logger) ([]any, error) {
		files, err := client.ListFiles(ctx, drivehttp.Query{
			FolderID:   folderID,
			MimePrefix: drive.ImageMimePrefix,
			Limit:      maxBoardMembers,
		})
		if err != nil {
			return nil, err
		}

		items := make([]any, 0, len(files))
		for _, f := range files {
			m := drive.MemberFromFile(f)
			items = append(items, BoardMember{
				ID:     f.ID,
				Name:   m.Name,
				Role:   m.Role,
				Images: drive.ImageURLs(f.ID, boardThumbnailWidth),
			})
		}

		return items, nil
	},
}

var Gallery = Kind{
	Name:      "gallery",
	FolderKey: "GALLERY_FOLDER",
	Load: func(ctx context.Context, client drivehttp.Client, folderID string, _ logger.Logger) ([]any, error) {
		files, err := client.ListFiles(ctx, drivehttp.Query{
			FolderID:   folderID,
			MimePrefix: drive.ImageMimePrefix,
			Limit:      maxGalleryImages,
		})
		if err != nil {
			return nil, err
		}

		items := make([]any, 0, len(files))
		for _, f := range files {
			items = append(items, GalleryImage{
				ID:       f.ID,
				Name:     f.Name,
				MimeType: f.MimeType,
				Images:   drive.ImageURLs(f.ID, galleryThumbnailWidth),
			})
		}

		return items, nil
	},
}

var Financials = Kind{
	Name:      "financials",
	FolderKey: "FINANCIALS_FOLDER",
	Load: func(ctx context.Context, client drivehttp.Client, folderID string, _ logger.Logger) ([]any, error) {
		files, err := client.ListFiles(ctx, drivehttp.Query{FolderID: folderID})
		if err != nil {
			return nil, err
		}

		items := make([]any, 0, len(files))
		for _, f := range files {
			items = append(items, FinancialDocument{
				ID:           f.ID,
				Title:        drive.TrimExtension(f.Name),
				OriginalName: f.Name,
				MimeType:     f.MimeType,
				ViewURL:      drive.FileViewURL(f.ID),
			})
		}

		return items, nil
	},
}

// PastEvents lists one subfolder per event, newest name first, and looks up
// each folder's cover image and photo count. A failed lookup leaves that event
// without photos instead of failing the widget.
var PastEvents = Kind{
	Name:      "past-events",
	FolderKey: "PAST_EVENTS_FOLDER",
	Load: func(ctx context.Context, client drivehttp.Client, folderID string, lggr logger.Logger) ([]any, error) {
		folders, err := client.ListFiles(ctx, drivehttp.Query{
			FolderID: folderID,
			MimeType: drive.FolderMimeType,
			OrderBy:  "name desc",
		})
		if err != nil {
			return nil, err
		}

		events := make([]PastEvent, len(folders))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(eventFolderConcurrency)

		for i, folder := range folders {
			parsed := drive.ParseEventFolder(folder.Name)
			events[i] = PastEvent{
				ID:         folder.ID,
				FolderName: folder.Name,
				EventName:  parsed.Name,
				Date:       parsed.Date,
				FolderURL:  drive.FolderURL(folder.ID),
			}

			g.Go(func() error {
				images, err := client.ListFiles(gctx, drivehttp.Query{
					FolderID:   folder.ID,
					MimePrefix: drive.ImageMimePrefix,
				})
				if err != nil {
					lggr.Warnw("failed to list event photos", "folder", folder.Name, "err", err)
					return nil
				}

				events[i].PhotoCount = len(images)
				if len(images) > 0 {
					events[i].ImageID = images[0].ID
					events[i].ImageName = images[0].Name
					events[i].Thumbnail = drive.ImageURLs(images[0].ID, eventThumbnailWidth)[1]
				}

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}

		items := make([]any, 0, len(events))
		for _, e := range events {
			items = append(items, e)
		}

		return items, nil
	},
}

// Kinds indexes every widget by name.
var Kinds = map[string]Kind{
	BoardMembers.Name: BoardMembers,
	Gallery.Name:      Gallery,
	Financials.Name:   Financials,
	PastEvents.Name:   PastEvents,
}
