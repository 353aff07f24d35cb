package utils

import (
	"testing"
)

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		isSelf   bool
		expected SourceKind
	}{
		{"self_post_wins", "https://www.reddit.com/r/pics/comments/abc/title/", true, KindSelfPost},
		{"reddit_image_host", "https://i.redd.it/abc123.jpg", false, KindDirect},
		{"reddit_preview_without_extension", "https://preview.redd.it/abc123", false, KindDirect},
		{"direct_extension_any_host", "https://example.com/media/cat.PNG", false, KindDirect},
		{"imgur_direct", "https://i.imgur.com/AbCdEfG.jpg", false, KindDirect},
		{"imgur_gifv", "https://i.imgur.com/AbCdEfG.gifv", false, KindDirect},
		{"imgur_album", "https://imgur.com/a/AbC123", false, KindImgurAlbum},
		{"imgur_gallery", "https://imgur.com/gallery/AbC123/", false, KindImgurAlbum},
		{"imgur_album_www", "https://www.imgur.com/a/AbC123", false, KindImgurAlbum},
		{"imgur_gallery_slug", "https://imgur.com/gallery/some-title-AbC12de", false, KindImgurAlbum},
		{"imgur_album_slug", "https://imgur.com/a/title-AbC12de/", false, KindImgurAlbum},
		{"imgur_image_page", "https://imgur.com/AbCdEfG", false, KindImgurImage},
		{"imgur_unknown_path", "https://imgur.com/user/someone/favorites", false, KindUnsupported},
		{"generic_page", "https://example.com/article/42", false, KindPage},
		{"non_http_scheme", "ftp://example.com/cat.jpg", false, KindUnsupported},
		{"empty", "", false, KindUnsupported},
		{"garbage", "::not a url::", false, KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyURL(tt.url, tt.isSelf)
			if result != tt.expected {
				t.Errorf("ClassifyURL(%q, %v) = %s, want %s", tt.url, tt.isSelf, result, tt.expected)
			}
		})
	}
}

func TestImgurIDs(t *testing.T) {
	albumID, err := ImgurAlbumID("https://imgur.com/a/XyZ987")
	if err != nil {
		t.Fatalf("ImgurAlbumID: %v", err)
	}
	if albumID != "XyZ987" {
		t.Errorf("expected XyZ987, got %s", albumID)
	}

	slugID, err := ImgurAlbumID("https://imgur.com/gallery/cats-being-cats-AbC12de")
	if err != nil || slugID != "AbC12de" {
		t.Errorf("expected AbC12de from slug link, got %q (%v)", slugID, err)
	}

	imageID, err := ImgurImageID("https://imgur.com/AbCdEfG")
	if err != nil {
		t.Fatalf("ImgurImageID: %v", err)
	}
	if imageID != "AbCdEfG" {
		t.Errorf("expected AbCdEfG, got %s", imageID)
	}

	if _, err := ImgurAlbumID("https://imgur.com/AbCdEfG"); err == nil {
		t.Error("expected error for non-album link")
	}
	if _, err := ImgurImageID("https://imgur.com/a/AbCdEfG"); err == nil {
		t.Error("expected error for album link")
	}
}

func TestNormalizeMediaURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://i.imgur.com/abc.gifv", "https://i.imgur.com/abc.mp4"},
		{"https://i.imgur.com/abc.jpg", "https://i.imgur.com/abc.jpg"},
		{"https://example.com/abc.gifv", "https://example.com/abc.gifv"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := NormalizeMediaURL(tt.input); result != tt.expected {
				t.Errorf("NormalizeMediaURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestExtensions(t *testing.T) {
	urlTests := map[string]string{
		"https://i.redd.it/img.JPG":           "jpg",
		"https://example.com/a/b.webm?x=1":    "webm",
		"https://example.com/no-extension":    "",
		"https://example.com/dir.with.dots/f": "",
	}
	for input, expected := range urlTests {
		if result := ExtensionFromURL(input); result != expected {
			t.Errorf("ExtensionFromURL(%q) = %q, want %q", input, result, expected)
		}
	}

	typeTests := map[string]string{
		"image/jpeg":               "jpg",
		"image/png; charset=utf-8": "png",
		"video/mp4":                "mp4",
		"":                         "",
	}
	for input, expected := range typeTests {
		if result := ExtensionFromContentType(input); result != expected {
			t.Errorf("ExtensionFromContentType(%q) = %q, want %q", input, result, expected)
		}
	}
}
