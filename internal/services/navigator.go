package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"permit-collector/internal/common"
	"permit-collector/internal/interfaces"
	"permit-collector/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
)

type navigator struct {
	config *common.PortalConfig
	client *resty.Client
	logger arbor.ILogger
}

// NewNavigator creates the street discoverer. It drives the search form over
// plain HTTP since the borough selection is a regular form submission.
func NewNavigator(config *common.PortalConfig, logger arbor.ILogger) interfaces.StreetDiscoverer {
	client := resty.New()
	client.SetTimeout(config.HTTPTimeout.Duration)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")

	return &navigator{
		config: config,
		client: client,
		logger: logger,
	}
}

func (n *navigator) DiscoverStreets(ctx context.Context) ([]models.Street, error) {
	formURL, err := url.Parse(n.config.URL)
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeNavigation, "invalid_url", "invalid portal url")
	}

	doc, err := n.fetch(n.client.R().SetContext(ctx), "GET", formURL.String())
	if err != nil {
		return nil, err
	}

	form := doc.Find(fmt.Sprintf(`form[name="%s"]`, n.config.FormName)).First()
	if form.Length() == 0 {
		return nil, common.NewNavigationError("form_not_found", fmt.Sprintf("form %s not found", n.config.FormName))
	}

	fields := formValues(form)
	fields[n.config.BoroughField] = n.config.BoroughValue

	action, err := formURL.Parse(form.AttrOr("action", ""))
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeNavigation, "invalid_action", "invalid form action")
	}

	req := n.client.R().SetContext(ctx)
	method := strings.ToUpper(form.AttrOr("method", "GET"))
	if method == "POST" {
		req.SetFormData(fields)
	} else {
		method = "GET"
		req.SetQueryParams(fields)
	}

	n.logger.Debug().
		Str("action", action.String()).
		Str("method", method).
		Str("borough", n.config.BoroughValue).
		Msg("Submitting borough selection")

	doc, err = n.fetch(req, method, action.String())
	if err != nil {
		return nil, err
	}

	selector := doc.Find(fmt.Sprintf(`select[name="%s"]`, n.config.StreetField)).First()
	if selector.Length() == 0 {
		return nil, common.NewNavigationError("selector_not_found", fmt.Sprintf("select %s not found", n.config.StreetField))
	}

	streets := streetOptions(selector, n.config.LeadingOptions)
	if len(streets) == 0 {
		return nil, common.NewNavigationError("no_streets", fmt.Sprintf("select %s has no street options", n.config.StreetField))
	}

	n.logger.Info().
		Int("streets", len(streets)).
		Msg("Discovered on-street options")

	return streets, nil
}

func (n *navigator) fetch(req *resty.Request, method, target string) (*goquery.Document, error) {
	res, err := req.Execute(method, target)
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeNavigation, "request_failed", fmt.Sprintf("failed to load %s", target))
	}
	if res.IsError() {
		return nil, common.NewNavigationError("bad_status", fmt.Sprintf("%s returned %s", target, res.Status()))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeNavigation, "parse_failed", "failed to parse form page")
	}
	return doc, nil
}

// formValues collects what a browser would submit for the form untouched
func formValues(form *goquery.Selection) map[string]string {
	fields := make(map[string]string)

	form.Find("input[name]").Each(func(_ int, s *goquery.Selection) {
		switch strings.ToLower(s.AttrOr("type", "text")) {
		case "button", "submit", "reset", "image", "file":
			return
		case "checkbox", "radio":
			if _, checked := s.Attr("checked"); !checked {
				return
			}
		}
		fields[s.AttrOr("name", "")] = s.AttrOr("value", "")
	})

	form.Find("select[name]").Each(func(_ int, s *goquery.Selection) {
		opt := s.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = s.Find("option").First()
		}
		if opt.Length() > 0 {
			fields[s.AttrOr("name", "")] = optionValue(opt)
		}
	})

	return fields
}

func streetOptions(selector *goquery.Selection, leading int) []models.Street {
	var streets []models.Street
	selector.Find("option").Each(func(i int, s *goquery.Selection) {
		if i < leading {
			return
		}
		if v := optionValue(s); v != "" {
			streets = append(streets, models.Street(v))
		}
	})
	return streets
}

// optionValue follows the HTML rule: the value attribute, else the option text
func optionValue(s *goquery.Selection) string {
	if v, ok := s.Attr("value"); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(s.Text())
}
