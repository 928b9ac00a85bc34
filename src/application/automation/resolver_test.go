package automation_test

import (
	"context"
	"io"
	"net/http"
	"strings"

	"staytuned/src/application/automation"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// redirectTransport serves canned redirects; any URL it doesn't know
// about answers 200.
type redirectTransport struct {
	redirects map[string]string
}

func (t redirectTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	response := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    request,
	}

	if location, ok := t.redirects[request.URL.String()]; ok {
		response.StatusCode = http.StatusFound
		response.Header.Set("Location", location)
	}

	return response, nil
}

func redirectingClient(redirects map[string]string) *http.Client {
	return &http.Client{Transport: redirectTransport{redirects: redirects}}
}

var _ = Describe("Resolver", func() {
	Describe("Recognized hosts", func() {
		expectResolution := func(finalURL string, expectRecognized bool) {
			resolver := automation.NewResolver(redirectingClient(map[string]string{
				"https://tuned.example.com/current": finalURL,
			}))

			resolvedURL, recognized, err := resolver.Resolve(context.Background(), "https://tuned.example.com/current")
			Expect(err).NotTo(HaveOccurred())

			Expect(resolvedURL).To(Equal(finalURL))
			Expect(recognized).To(Equal(expectRecognized))
		}

		It("recognizes youtube.com", func() {
			expectResolution("https://youtube.com/watch?v=cool_jamz", true)
		})

		It("recognizes www.youtube.com", func() {
			expectResolution("https://www.youtube.com/watch?v=cool_jamz", true)
		})

		It("recognizes mobile subdomains", func() {
			expectResolution("https://m.youtube.com/watch?v=cool_jamz", true)
		})

		It("recognizes youtu.be short links", func() {
			expectResolution("https://youtu.be/cool_jamz", true)
		})

		It("does not recognize other hosts", func() {
			expectResolution("https://example.com/watch?v=cool_jamz", false)
		})

		It("does not recognize lookalike hosts", func() {
			expectResolution("https://notyoutube.com/watch?v=cool_jamz", false)
		})
	})

	Describe("Redirect chains", func() {
		It("follows multiple hops", func() {
			resolver := automation.NewResolver(redirectingClient(map[string]string{
				"https://tuned.example.com/current": "https://hop.example.com/next",
				"https://hop.example.com/next":      "https://youtube.com/watch?v=cool_jamz",
			}))

			resolvedURL, recognized, err := resolver.Resolve(context.Background(), "https://tuned.example.com/current")
			Expect(err).NotTo(HaveOccurred())

			Expect(resolvedURL).To(Equal("https://youtube.com/watch?v=cool_jamz"))
			Expect(recognized).To(BeTrue())
		})

		It("handles a URL that doesn't redirect at all", func() {
			resolver := automation.NewResolver(redirectingClient(nil))

			resolvedURL, recognized, err := resolver.Resolve(context.Background(), "https://youtube.com/watch?v=cool_jamz")
			Expect(err).NotTo(HaveOccurred())

			Expect(resolvedURL).To(Equal("https://youtube.com/watch?v=cool_jamz"))
			Expect(recognized).To(BeTrue())
		})
	})

	Describe("Malformed input", func() {
		It("errors on an unparseable URL", func() {
			resolver := automation.NewResolver(redirectingClient(nil))

			_, _, err := resolver.Resolve(context.Background(), "://not-a-url")
			Expect(err).To(HaveOccurred())
		})
	})
})
