package scaffold

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var githubShorthand = regexp.MustCompile(`^github\.com/([^/]+)/([^/]+)/(.+)$`)

// RawBaseURL is where github.com shorthand references are fetched from.
var RawBaseURL = "https://raw.githubusercontent.com"

// Load reads a template from a local file, an http(s) URL, or a
// github.com/owner/repo/path reference on the main branch. Sources of a
// local template resolve relative to the template file.
func Load(ctx context.Context, ref string) (*Template, error) {
	if matches := githubShorthand.FindStringSubmatch(ref); len(matches) == 4 {
		owner, repo, path := matches[1], matches[2], matches[3]
		rawURL := fmt.Sprintf("%s/%s/%s/main/%s", RawBaseURL, owner, repo, path)
		data, err := fetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to download template from GitHub raw URL: %w", err)
		}
		return Parse(data, nil)
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		data, err := fetch(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to download template from URL: %w", err)
		}
		return Parse(data, nil)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return Parse(data, os.DirFS(filepath.Dir(ref)))
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read template body: %w", err)
	}
	return data, nil
}
