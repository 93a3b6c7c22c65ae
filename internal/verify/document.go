package verify

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

var passthroughSchemes = []string{"http://", "https://", "file://", "data:", "about:"}

// ResolveDocument turns a document reference into a URL the browser can load.
// URLs pass through unchanged. Anything else is a local path: "~" is
// expanded, the path is made absolute, and it must name an existing file.
func ResolveDocument(doc string) (string, error) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return "", fmt.Errorf("%w: no document given", ErrNavigation)
	}
	lower := strings.ToLower(doc)
	for _, scheme := range passthroughSchemes {
		if strings.HasPrefix(lower, scheme) {
			return doc, nil
		}
	}

	expanded, err := homedir.Expand(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNavigation, abs)
	}

	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		// Windows drive paths.
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String(), nil
}
