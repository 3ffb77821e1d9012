package relay

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// The stdlib table only knows web formats; Telegram serves videos and some
// photos with extensions it would otherwise miss.
func init() {
	for ext, typ := range map[string]string{
		".mp4":  "video/mp4",
		".m4v":  "video/x-m4v",
		".mov":  "video/quicktime",
		".webm": "video/webm",
		".gif":  "image/gif",
		".heic": "image/heic",
	} {
		_ = mime.AddExtensionType(ext, typ)
	}
}

// FileInfo is the metadata the source transport reports for a file.
type FileInfo struct {
	FileID string
	Path   string // path on the source file server, e.g. "photos/file_12.jpg"
	Size   int
}

// Media is a resolved attachment ready for upload.
type Media struct {
	Data []byte
	// MimeType is empty when it could not be inferred. ScratchPath then
	// holds a local copy of Data and the destination receives an untyped
	// upload.
	MimeType    string
	ScratchPath string
}

// MediaResolver fetches source files and works out their MIME type.
type MediaResolver struct {
	source     Source
	scratchDir string
	logger     *slog.Logger
}

// NewMediaResolver creates a MediaResolver writing fallback files to
// scratchDir (os.TempDir when empty).
func NewMediaResolver(source Source, scratchDir string, logger *slog.Logger) *MediaResolver {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaResolver{source: source, scratchDir: scratchDir, logger: logger}
}

// Resolve downloads the file behind fileID. Source failures are returned as
// *RetrievalError without retry.
func (r *MediaResolver) Resolve(ctx context.Context, fileID string) (Media, error) {
	info, err := r.source.FetchFile(ctx, fileID)
	if err != nil {
		return Media{}, &RetrievalError{FileID: fileID, Err: err}
	}
	data, err := r.source.Download(ctx, info.Path)
	if err != nil {
		return Media{}, &RetrievalError{FileID: fileID, Err: err}
	}

	if typ := mimeFromPath(info.Path); typ != "" {
		return Media{Data: data, MimeType: typ}, nil
	}

	r.logger.Error("relay: no mime type can be inferred", "file_id", info.FileID, "path", info.Path)
	scratch, err := r.persist(info, data)
	if err != nil {
		return Media{}, err
	}
	r.logger.Info("relay: saved untyped media", "path", scratch)
	return Media{Data: data, ScratchPath: scratch}, nil
}

func (r *MediaResolver) persist(info FileInfo, data []byte) (string, error) {
	if err := os.MkdirAll(r.scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	name := info.FileID
	if name == "" {
		name = path.Base(info.Path)
	}
	dest := filepath.Join(r.scratchDir, filepath.Base(name))
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	return dest, nil
}

func mimeFromPath(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	typ := mime.TypeByExtension(ext)
	if typ == "" {
		return ""
	}
	// Drop parameters such as "; charset=utf-8".
	mediaType, _, err := mime.ParseMediaType(typ)
	if err != nil {
		return ""
	}
	return mediaType
}
