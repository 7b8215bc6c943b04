package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"permit-collector/internal/common"
	"permit-collector/internal/interfaces"
	"permit-collector/internal/models"

	"github.com/ternarybob/arbor"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// resultPage renders a popup page shaped like the portal's: a status row,
// a title row and the header row ahead of the data rows.
func resultPage(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Permits</title></head><body><table>\n")
	b.WriteString("<tr><td><b>click column name to sort</b></td></tr>\n")
	b.WriteString("<tr><td>Active Street Construction Permits</td></tr>\n")
	b.WriteString("<tr>")
	for _, h := range headers {
		fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(h))
	}
	b.WriteString("</tr>\n")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(cell))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

const emptyPage = `<html><body><table>
<tr><td><b>No permits found</b></td></tr>
</table></body></html>`

type fetchResponse struct {
	page string
	err  error
}

// fakeFetcher replays queued responses per street
type fakeFetcher struct {
	responses map[models.Street][]fetchResponse
	calls     []models.Street
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: make(map[models.Street][]fetchResponse)}
}

func (f *fakeFetcher) queue(street models.Street, responses ...fetchResponse) {
	f.responses[street] = append(f.responses[street], responses...)
}

func (f *fakeFetcher) FetchStreetPage(ctx context.Context, street models.Street) (string, error) {
	f.calls = append(f.calls, street)
	queue := f.responses[street]
	if len(queue) == 0 {
		return "", common.NewFetchError("no_response", "no response queued")
	}
	f.responses[street] = queue[1:]
	return queue[0].page, queue[0].err
}

func fetchFault() fetchResponse {
	return fetchResponse{err: common.NewFetchError("timeout", "page load timed out")}
}

func page(html string) fetchResponse {
	return fetchResponse{page: html}
}

// fakeSession records every call and fails on the configured step
type fakeSession struct {
	calls   []string
	failOn  string
	source  string
	closed  int
	closeFn func() error
}

func (s *fakeSession) record(call string) error {
	s.calls = append(s.calls, call)
	if s.failOn != "" && strings.HasPrefix(call, s.failOn) {
		return fmt.Errorf("%s: element not found", call)
	}
	return nil
}

func (s *fakeSession) Open(ctx context.Context, url string) error {
	return s.record("open " + url)
}

func (s *fakeSession) SelectOption(ctx context.Context, field, value string) error {
	return s.record("select " + field + "=" + value)
}

func (s *fakeSession) ClickForPopup(ctx context.Context, selector string) error {
	return s.record("click " + selector)
}

func (s *fakeSession) PageSource(ctx context.Context) (string, error) {
	if err := s.record("source"); err != nil {
		return "", err
	}
	return s.source, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

type fakeFactory struct {
	sessions []*fakeSession
	next     func() *fakeSession
	err      error
}

func (f *fakeFactory) NewSession(ctx context.Context) (interfaces.BrowserSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.next()
	f.sessions = append(f.sessions, s)
	return s, nil
}

func testPortalConfig() *common.PortalConfig {
	cfg := common.DefaultConfig().Portal
	cfg.URL = "http://portal.test/permitsearchform.asp"
	return &cfg
}
