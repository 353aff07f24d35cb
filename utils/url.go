package utils

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"

	"postfetch/internal"
)

// SourceKind identifies which extractor handles a piece of content
type SourceKind int

const (
	KindUnsupported SourceKind = iota
	KindDirect
	KindSelfPost
	KindComment
	KindImgurAlbum
	KindImgurImage
	KindPage
)

// String returns the extractor name for the kind
func (k SourceKind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindSelfPost:
		return "self_post"
	case KindComment:
		return "comment"
	case KindImgurAlbum:
		return "imgur_album"
	case KindImgurImage:
		return "imgur_image"
	case KindPage:
		return "page"
	default:
		return "unsupported"
	}
}

var (
	imgurHosts = map[string]bool{
		"imgur.com":   true,
		"m.imgur.com": true,
		"i.imgur.com": true,
	}

	// Hosts that only serve raw media
	directHosts = map[string]bool{
		"i.redd.it":                true,
		"i.imgur.com":              true,
		"preview.redd.it":          true,
		"external-preview.redd.it": true,
	}

	mediaExtensions = map[string]bool{
		"jpg": true, "jpeg": true, "png": true, "gif": true, "gifv": true,
		"webp": true, "bmp": true, "mp4": true, "webm": true, "mov": true,
	}

	// Slug links like /gallery/some-title-AbC12de carry the id after the last dash
	imgurAlbumPattern = regexp.MustCompile(`^/(?:a|gallery)/(?:[A-Za-z0-9_-]*-)?([A-Za-z0-9]+)/?$`)
	imgurImagePattern = regexp.MustCompile(`^/([A-Za-z0-9]{5,10})/?$`)
)

// ClassifyURL picks the source kind for a post. It depends only on the URL and the
// self-post flag.
func ClassifyURL(rawURL string, isSelf bool) SourceKind {
	if isSelf {
		return KindSelfPost
	}

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return KindUnsupported
	}

	host := normalizeHost(parsed.Host)
	ext := extensionOf(parsed.Path)

	if imgurHosts[host] {
		switch {
		case imgurAlbumPattern.MatchString(parsed.Path):
			return KindImgurAlbum
		case mediaExtensions[ext]:
			return KindDirect
		case imgurImagePattern.MatchString(parsed.Path):
			return KindImgurImage
		}
		return KindUnsupported
	}

	if directHosts[host] || mediaExtensions[ext] {
		return KindDirect
	}

	return KindPage
}

// ImgurAlbumID extracts the album id from an imgur album or gallery URL
func ImgurAlbumID(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", internal.NewValidationErrorWithValue("url", fmt.Sprintf("invalid URL format: %v", err), rawURL)
	}
	match := imgurAlbumPattern.FindStringSubmatch(parsed.Path)
	if match == nil {
		return "", internal.NewValidationErrorWithValue("url", "not an imgur album link", rawURL)
	}
	return match[1], nil
}

// ImgurImageID extracts the image id from an imgur image page URL
func ImgurImageID(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", internal.NewValidationErrorWithValue("url", fmt.Sprintf("invalid URL format: %v", err), rawURL)
	}
	match := imgurImagePattern.FindStringSubmatch(parsed.Path)
	if match == nil {
		return "", internal.NewValidationErrorWithValue("url", "not an imgur image link", rawURL)
	}
	return match[1], nil
}

// NormalizeMediaURL rewrites links whose served format differs from the extension
func NormalizeMediaURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if imgurHosts[normalizeHost(parsed.Host)] && strings.HasSuffix(strings.ToLower(parsed.Path), ".gifv") {
		parsed.Path = strings.TrimSuffix(parsed.Path, path.Ext(parsed.Path)) + ".mp4"
		return parsed.String()
	}
	return rawURL
}

// ExtensionFromURL returns the lower-case extension of the URL path without the dot
func ExtensionFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return extensionOf(parsed.Path)
}

// ExtensionFromContentType maps a Content-Type header to an extension
func ExtensionFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "video/mp4":
		return "mp4"
	case "video/webm":
		return "webm"
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(exts[0], ".")
}

func extensionOf(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	if h, _, found := strings.Cut(host, ":"); found {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}
