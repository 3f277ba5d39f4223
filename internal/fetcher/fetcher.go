package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"rewardfeed/internal/components/assert"
	"rewardfeed/internal/components/telemetry"
	"rewardfeed/pkg/htmlutil"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_fetcher_fetch = "fetcher.fetch"
	report_fetcher_page  = "fetcher.page"
)

// DefaultUserAgent is a desktop browser user agent, some sources refuse
// requests that do not look like they come from a browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const DefaultTimeout = 30 * time.Second

type ErrorKind int

const (
	// KindStatus is a response with a non 2xx status.
	KindStatus ErrorKind = iota
	// KindTransport is a request that never got a response (dns, tls, timeout, cancellation).
	KindTransport
	// KindEmptyBody is a 2xx response without any content.
	KindEmptyBody
	// KindParse is a body that could not be parsed as html.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindTransport:
		return "transport"
	case KindEmptyBody:
		return "empty body"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// Error is returned by Fetch for every failure, Kind tells them apart.
type Error struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	case KindEmptyBody:
		return fmt.Sprintf("fetch %s: empty body (status %d)", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
}

// Page is a fetched and parsed html document.
type Page struct {
	URL   string
	Doc   *goquery.Document
	Title string
	// Size is the length of the raw body in bytes.
	Size int
}

type Fetcher struct {
	http *resty.Client
	tel  telemetry.API
}

func New(opts Options, tel telemetry.API) Fetcher {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("fetcher", tel)

	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml")
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, tel)

	return Fetcher{
		http: client,
		tel:  tel,
	}
}

// Fetch gets url and parses the response as html.
func (f Fetcher) Fetch(ctx context.Context, url string) (Page, error) {
	res, err := f.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		err = &Error{Kind: KindTransport, URL: url, Err: err}
		f.tel.ReportBroken(report_fetcher_fetch, err)
		return Page{}, err
	}

	status := res.StatusCode()
	if status < 200 || status >= 300 {
		err = &Error{Kind: KindStatus, URL: url, StatusCode: status}
		f.tel.ReportBroken(report_fetcher_fetch, err)
		return Page{}, err
	}

	body := res.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		err = &Error{Kind: KindEmptyBody, URL: url, StatusCode: status}
		f.tel.ReportBroken(report_fetcher_fetch, err)
		return Page{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		err = &Error{Kind: KindParse, URL: url, StatusCode: status, Err: err}
		f.tel.ReportBroken(report_fetcher_fetch, err)
		return Page{}, err
	}

	page := Page{
		URL:   url,
		Doc:   doc,
		Title: htmlutil.CleanText(doc.Find("title").First().Text()),
		Size:  len(body),
	}
	// a challenge page from a bot filter shows up here with an unexpected title
	f.tel.ReportDebug(report_fetcher_page, page.Title, page.Size)
	return page, nil
}
