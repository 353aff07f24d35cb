package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	"postfetch/internal"
	"postfetch/utils"
)

// fallbackExtension is used when neither the URL nor the response names a type
const fallbackExtension = "bin"

// transfer downloads one file into dir under title and records it on the outcome.
// A URL the duplicate checker already knows is recorded as skipped, not failed.
func transfer(ctx context.Context, deps Deps, outcome *internal.ExtractionOutcome, sourceURL, dir, title string) error {
	sourceURL = utils.NormalizeMediaURL(sourceURL)

	if deps.Dedup != nil {
		duplicate, err := deps.Dedup.IsDuplicate(ctx, sourceURL)
		if err != nil {
			internal.LogWarn("Duplicate check failed for %s, downloading anyway: %v", sourceURL, err)
		} else if duplicate {
			internal.LogDebug("Skipping already downloaded %s", sourceURL)
			outcome.AddSkipped(sourceURL)
			return nil
		}
	}

	resp, err := deps.HTTP.GetWithRetry(ctx, sourceURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return internal.NewHostError(resp.StatusCode, sourceURL)
	}

	ext := utils.CleanExtension(utils.ExtensionFromURL(sourceURL))
	if ext == "" {
		ext = utils.CleanExtension(utils.ExtensionFromContentType(resp.Header.Get("Content-Type")))
	}
	if ext == "" {
		ext = fallbackExtension
	}

	file, path, err := deps.Resolver.Claim(dir, title, ext)
	if err != nil {
		kind := internal.ErrDownloadFailed
		if errors.Is(err, fs.ErrPermission) {
			kind = internal.ErrPermissionDenied
		}
		return internal.NewFetchError(0, "failed to create output file", kind).
			WithURL(sourceURL).
			WithContext("dir", dir).
			WithCause(err)
	}

	var body io.Reader = resp.Body
	if deps.Limiter != nil {
		body = utils.PacedReader(ctx, resp.Body, deps.Limiter)
	}

	written, copyErr := io.Copy(file, body)
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		outcome.AddIncomplete(path)
		return internal.NewFetchError(0, fmt.Sprintf("transfer interrupted after %d bytes", written), internal.ErrDownloadFailed).
			WithURL(sourceURL).
			WithContext("path", path).
			WithCause(copyErr)
	}

	if resp.ContentLength > 0 && written != resp.ContentLength {
		outcome.AddIncomplete(path)
		return internal.NewFetchError(0, fmt.Sprintf("expected %d bytes, got %d", resp.ContentLength, written), internal.ErrDownloadFailed).
			WithURL(sourceURL).
			WithContext("path", path)
	}

	item := internal.ContentDescriptor{Path: path, SourceURL: sourceURL, Size: written}
	outcome.AddContent(item)

	if deps.Dedup != nil {
		if err := deps.Dedup.MarkDownloaded(ctx, item); err != nil {
			internal.LogWarn("Failed to record %s as downloaded: %v", sourceURL, err)
		}
	}
	return nil
}
