package automation

import (
	"context"
	"net/http"
	"strings"
	"time"

	"staytuned/src/lib/cerr"
)

var recognizedHosts = []string{"youtube.com", "youtu.be"}

func NewResolver(httpClient *http.Client) Resolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return Resolver{httpClient: httpClient}
}

type Resolver struct {
	httpClient *http.Client
}

// Resolve follows the redirect chain and reports whether the final URL
// lands on a recognized video host.
func (r Resolver) Resolve(ctx context.Context, redirectURL string) (string, bool, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodHead, redirectURL, nil)
	if err != nil {
		return "", false, cerr.Field("redirect_url", redirectURL).Wrap(err).Error("Failed to build redirect check request")
	}

	response, err := r.httpClient.Do(request)
	if err != nil {
		return "", false, cerr.Field("redirect_url", redirectURL).Wrap(err).Error("Failed to check redirect")
	}
	defer response.Body.Close()

	finalURL := response.Request.URL
	host := strings.TrimPrefix(finalURL.Hostname(), "www.")

	for _, recognized := range recognizedHosts {
		if host == recognized || strings.HasSuffix(host, "."+recognized) {
			return finalURL.String(), true, nil
		}
	}

	return finalURL.String(), false, nil
}
