package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxModuleSize caps how much source a resolver will read.
const maxModuleSize = 4 << 20

// Resolver fetches module source by name.
type Resolver interface {
	Resolve(ctx context.Context, name string) ([]byte, error)
}

// DirResolver reads <Dir>/<name>.lua from the filesystem.
type DirResolver struct {
	Dir string
}

// Resolve reads the module file.
func (r DirResolver) Resolve(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(r.Dir, moduleFile(name))
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModuleUnavailable, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrModuleUnavailable, err)
	}
	if len(data) > maxModuleSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrModuleUnavailable, path, maxModuleSize)
	}
	return data, nil
}

// HTTPResolver fetches <BaseURL>/<name>.lua.
type HTTPResolver struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPResolver creates a resolver with a bounded client timeout.
func NewHTTPResolver(baseURL string) HTTPResolver {
	return HTTPResolver{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Resolve downloads the module. Any transport error or non-200 status
// reports ErrModuleUnavailable, except context deadlines, which are
// returned as-is.
func (r HTTPResolver) Resolve(ctx context.Context, name string) ([]byte, error) {
	url := strings.TrimRight(r.BaseURL, "/") + "/" + moduleFile(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModuleUnavailable, err)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrModuleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrModuleUnavailable, url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxModuleSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModuleUnavailable, err)
	}
	if len(data) > maxModuleSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrModuleUnavailable, url, maxModuleSize)
	}
	return data, nil
}

// ResolverFor picks an HTTP resolver for http(s) URLs and a directory
// resolver otherwise.
func ResolverFor(source string) Resolver {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewHTTPResolver(source)
	}
	return DirResolver{Dir: source}
}

func moduleFile(name string) string {
	if strings.HasSuffix(name, ".lua") {
		return name
	}
	return name + ".lua"
}
