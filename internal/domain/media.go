package domain

import (
	"path/filepath"
	"strings"
)

// MediaKind groups uploads by file type
type MediaKind string

const (
	MediaImages MediaKind = "images"
	MediaVideos MediaKind = "videos"
	MediaOther  MediaKind = "other"
)

// MediaCategory is the logical slot the upload fills
type MediaCategory string

const (
	CategoryProfilePictures MediaCategory = "profile_pictures"
	CategoryCoverPictures   MediaCategory = "cover_pictures"
	CategoryPosts           MediaCategory = "posts"
	CategoryStories         MediaCategory = "stories"
	CategoryAudios          MediaCategory = "audios"
	CategoryDocuments       MediaCategory = "documents"
	CategoryProfileVideos   MediaCategory = "profile_videos"
)

// allowed categories per kind
var mediaCategories = map[MediaKind][]MediaCategory{
	MediaImages: {CategoryProfilePictures, CategoryCoverPictures, CategoryPosts, CategoryStories},
	MediaVideos: {CategoryPosts, CategoryStories, CategoryProfileVideos},
	MediaOther:  {CategoryAudios, CategoryDocuments},
}

var mediaExtensions = map[string]MediaKind{
	".jpg":  MediaImages,
	".jpeg": MediaImages,
	".png":  MediaImages,
	".gif":  MediaImages,
	".webp": MediaImages,
	".mp4":  MediaVideos,
	".mov":  MediaVideos,
	".webm": MediaVideos,
	".mp3":  MediaOther,
	".wav":  MediaOther,
	".pdf":  MediaOther,
}

// MediaUpload is handed to the media storage collaborator
type MediaUpload struct {
	Filename    string
	ContentType string
	Kind        MediaKind
	Category    MediaCategory
	Size        int64
	Data        []byte
}

// Validate checks kind, category and that the extension matches the kind
func (u *MediaUpload) Validate(maxSize int64) error {
	cats, ok := mediaCategories[u.Kind]
	if !ok {
		return Validation("kind", "media kind must be images, videos or other")
	}
	valid := false
	for _, c := range cats {
		if c == u.Category {
			valid = true
			break
		}
	}
	if !valid {
		return Validation("category", "category %q is not allowed for %s", u.Category, u.Kind)
	}
	ext := strings.ToLower(filepath.Ext(u.Filename))
	if kind, ok := mediaExtensions[ext]; !ok || kind != u.Kind {
		return Validation("file", "file type %q is not allowed for %s", ext, u.Kind)
	}
	if len(u.Data) == 0 {
		return Validation("file", "file is empty")
	}
	if maxSize > 0 && int64(len(u.Data)) > maxSize {
		return Validation("file", "file exceeds %d bytes", maxSize)
	}
	return nil
}
