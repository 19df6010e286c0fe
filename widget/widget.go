// Package widget runs the Drive-backed page widgets (board members, sponsor
// gallery, financial documents, past events). Every widget follows the same
// contract: resolve a folder reference, list the folder, and turn the files
// into display items, surfacing configuration and API errors as state.
package widget

import (
	"context"
	"fmt"
	"sync"

	"github.com/vasaviseattle/site-tools/drive"
	drivehttp "github.com/vasaviseattle/site-tools/drive/http"
	"github.com/vasaviseattle/site-tools/logger"
)

type Status string

const (
	StatusIdle          Status = "idle"
	StatusLoading       Status = "loading"
	StatusReady         Status = "ready"
	StatusNotConfigured Status = "not_configured"
	StatusError         Status = "error"
)

// State is what a widget renders.
type State struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	FolderID string `json:"folderId,omitempty"`
	Items    []any  `json:"items"`
}

// Kind configures one widget.
type Kind struct {
	Name string
	// FolderKey is the configuration key named in the missing-folder message.
	FolderKey string
	Load      func(ctx context.Context, client drivehttp.Client, folderID string, lggr logger.Logger) ([]any, error)
}

func (k Kind) missingFolderMessage() string {
	return fmt.Sprintf("%s. Provide one via the folder parameter or %s", drive.ErrMissingFolder.Error(), k.FolderKey)
}

// Widget holds the latest state of one widget instance. Loads may overlap;
// each takes a request token and only the newest load is allowed to publish
// its result.
type Widget struct {
	kind          Kind
	client        drivehttp.Client
	apiKey        string
	defaultFolder string
	lggr          logger.Logger

	mu     sync.Mutex
	latest uint64
	state  State
}

type Options struct {
	APIKey        string
	DefaultFolder string
}

func New(kind Kind, client drivehttp.Client, opts Options, lggr logger.Logger) *Widget {
	return &Widget{
		kind:          kind,
		client:        client,
		apiKey:        opts.APIKey,
		defaultFolder: opts.DefaultFolder,
		lggr:          lggr.Named(kind.Name),
		state:         State{Status: StatusIdle, Items: []any{}},
	}
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Load resolves folderRef (or the configured default when it is empty),
// fetches the folder and returns the widget state after this load. If a newer
// load started in the meantime, its state wins and this result is dropped.
func (w *Widget) Load(ctx context.Context, folderRef string) State {
	if folderRef == "" {
		folderRef = w.defaultFolder
	}

	w.mu.Lock()
	w.latest++
	token := w.latest

	if w.apiKey == "" {
		w.state = State{Status: StatusNotConfigured, Message: drive.ErrMissingAPIKey.Error(), Items: []any{}}
		w.mu.Unlock()
		return w.State()
	}

	folderID := drive.ExtractFolderID(folderRef)
	if folderID == "" {
		w.state = State{Status: StatusNotConfigured, Message: w.kind.missingFolderMessage(), Items: []any{}}
		w.mu.Unlock()
		return w.State()
	}

	w.state = State{Status: StatusLoading, FolderID: folderID, Items: []any{}}
	w.mu.Unlock()

	items, err := w.kind.Load(ctx, w.client, folderID, w.lggr)

	w.mu.Lock()
	defer w.mu.Unlock()

	if token != w.latest {
		w.lggr.Debugw("discarding stale widget result", "folderId", folderID, "token", token, "latest", w.latest)
		return w.state
	}

	if err != nil {
		w.lggr.Errorw("widget load failed", "folderId", folderID, "err", err)
		w.state = State{Status: StatusError, Message: err.Error(), FolderID: folderID, Items: []any{}}
		return w.state
	}

	if items == nil {
		items = []any{}
	}

	w.state = State{Status: StatusReady, FolderID: folderID, Items: items}
	return w.state
}
