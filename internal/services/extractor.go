package services

import (
	"strings"

	"permit-collector/internal/common"
	"permit-collector/internal/interfaces"
	"permit-collector/internal/models"

	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"
)

const (
	// status text shown in bold above the result table
	populatedMarker = "click column name to sort"
	emptyMarker     = "no permits found"

	// leading <tr> elements that hold the page chrome and the header row
	chromeRows = 3
)

type extractor struct {
	logger arbor.ILogger
}

// NewExtractor creates the permit table extractor
func NewExtractor(logger arbor.ILogger) interfaces.TableExtractor {
	return &extractor{
		logger: logger,
	}
}

// ExtractTable reads the popup result page into a table state
func (e *extractor) ExtractTable(htmlContent string) (models.TableState, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return models.TableState{}, common.WrapError(err, common.ErrorTypeExtraction, "parse_failed", "failed to parse result page")
	}

	status := e.tableStatus(doc)
	switch {
	case status == populatedMarker:
	case strings.Contains(normalizeText(common.RawText(doc)), emptyMarker):
		return models.EmptyTable(), nil
	default:
		return models.TableState{}, common.NewExtractionError("unknown_status", "result page has no recognised status marker").
			WithDetails(status)
	}

	headers := extractHeaders(doc)
	if len(headers) == 0 {
		return models.TableState{}, common.NewExtractionError("no_headers", "result table has no header cells")
	}

	table := &models.PermitTable{
		Headers: headers,
		Rows:    extractRows(doc, len(headers)),
	}
	before := len(table.Rows)
	table.Clean()

	e.logger.Debug().
		Int("headers", len(headers)).
		Int("rows", len(table.Rows)).
		Int("dropped", before-len(table.Rows)).
		Msg("Permit table extracted")

	return models.PopulatedTable(table), nil
}

// tableStatus returns the normalized text of the first bold element
func (e *extractor) tableStatus(doc *html.Node) string {
	if b := common.FindFirstByTag(doc, "b"); b != nil {
		return normalizeText(common.RawText(b))
	}
	return ""
}

// normalizeText lower-cases s and collapses whitespace runs to single spaces
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func extractHeaders(doc *html.Node) []string {
	var headers []string
	for _, th := range common.FindNodesByTag(doc, "th") {
		headers = append(headers, common.StripWhitespace(common.RawText(th)))
	}
	return headers
}

// extractRows pads short rows with "" so every row matches the header count
func extractRows(doc *html.Node, numHeaders int) []models.Row {
	trs := common.FindNodesByTag(doc, "tr")
	if len(trs) <= chromeRows {
		return nil
	}

	rows := make([]models.Row, 0, len(trs)-chromeRows)
	for _, tr := range trs[chromeRows:] {
		cells := common.FindNodesByTag(tr, "td")
		values := make([]string, numHeaders)
		for i := 0; i < numHeaders && i < len(cells); i++ {
			values[i] = common.ExtractText(cells[i])
		}
		rows = append(rows, models.Row{Values: values})
	}
	return rows
}
