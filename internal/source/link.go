package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jackzampolin/papercast/internal/failure"
)

// LinkResolver downloads the PDF behind a link. Direct PDF responses are
// used as-is; HTML landing pages are searched for the paper's PDF link.
type LinkResolver struct {
	Client   *http.Client
	MaxBytes int64
}

// NewLinkResolver returns a resolver with a bounded HTTP client.
func NewLinkResolver(maxBytes int64) *LinkResolver {
	return &LinkResolver{
		Client:   &http.Client{Timeout: 60 * time.Second},
		MaxBytes: maxBytes,
	}
}

// Fetch returns the PDF bytes and a file name for rawURL.
func (r *LinkResolver) Fetch(ctx context.Context, rawURL string) (string, []byte, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, failure.New(failure.InvalidLink, "%q is not an http(s) URL", rawURL)
	}

	body, ctype, final, err := r.get(ctx, u)
	if err != nil {
		return "", nil, err
	}
	if isPDF(body, ctype) {
		return nameFor(final), body, nil
	}
	if !strings.Contains(ctype, "html") {
		return "", nil, failure.New(failure.InvalidLink, "%s returned %s, not a PDF", u, ctype)
	}

	pdfURL, err := FindPDFLink(bytes.NewReader(body), final)
	if err != nil {
		return "", nil, err
	}
	body, ctype, final, err = r.get(ctx, pdfURL)
	if err != nil {
		return "", nil, err
	}
	if !isPDF(body, ctype) {
		return "", nil, failure.New(failure.InvalidLink, "%s does not point to a PDF", pdfURL)
	}
	return nameFor(final), body, nil
}

func (r *LinkResolver) get(ctx context.Context, u *url.URL) ([]byte, string, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", nil, failure.Wrap(failure.InvalidLink, err)
	}
	req.Header.Set("Accept", "application/pdf,text/html;q=0.9,*/*;q=0.5")
	req.Header.Set("User-Agent", "papercast/1.0")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", nil, ctx.Err()
		}
		return nil, "", nil, failure.Wrap(failure.InvalidLink, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", nil, failure.New(failure.InvalidLink, "%s returned status %d", u, resp.StatusCode)
	}

	limit := r.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", nil, failure.Wrap(failure.InvalidLink, fmt.Errorf("read %s: %w", u, err))
	}
	if int64(len(body)) > limit {
		return nil, "", nil, failure.New(failure.FileSizeExceeded, "%s exceeds %d bytes", u, limit)
	}
	ctype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return body, ctype, resp.Request.URL, nil
}

// FindPDFLink scans an HTML landing page for the paper's PDF: first the
// citation_pdf_url meta tag, then the first anchor whose path ends in .pdf.
func FindPDFLink(r io.Reader, base *url.URL) (*url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, failure.Wrap(failure.InvalidLink, fmt.Errorf("parse landing page: %w", err))
	}

	var href string
	if v, ok := doc.Find(`meta[name="citation_pdf_url"]`).First().Attr("content"); ok {
		href = v
	}
	if href == "" {
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("href")
			ref, err := url.Parse(strings.TrimSpace(v))
			if err == nil && strings.HasSuffix(strings.ToLower(ref.Path), ".pdf") {
				href = v
				return false
			}
			return true
		})
	}
	if href == "" {
		return nil, failure.New(failure.InvalidLink, "no PDF link found on %s", base)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, failure.Wrap(failure.InvalidLink, err)
	}
	return base.ResolveReference(ref), nil
}

func isPDF(body []byte, ctype string) bool {
	return ctype == "application/pdf" || bytes.HasPrefix(body, []byte("%PDF-"))
}

func nameFor(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		base = u.Host
	}
	return CleanName(base)
}
