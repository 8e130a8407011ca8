package httpdriver

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
)

func node(s *goquery.Selection) driver.Node {
	n := driver.Node{
		Tag:     goquery.NodeName(s),
		Text:    s.Text(),
		Visible: visible(s),
	}
	switch n.Tag {
	case "input":
		n.Value, _ = s.Attr("value")
	case "textarea":
		n.Value = s.Text()
	case "select":
		n.Value = selectedValue(s)
	}
	return n
}

// visible approximates rendering: an element is hidden when it or an
// ancestor is hidden by attribute or inline style.
func visible(s *goquery.Selection) bool {
	if s.Is("input[type=hidden]") {
		return false
	}
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		if _, ok := cur.Attr("hidden"); ok {
			return false
		}
		style, _ := cur.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func selectedValue(s *goquery.Selection) string {
	opt := s.Find("option[selected]").First()
	if opt.Length() == 0 {
		opt = s.Find("option").First()
	}
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(opt.Text())
}

// formValues collects the successful controls of form. submitter, when set,
// contributes its own name/value.
func formValues(form, submitter *goquery.Selection) url.Values {
	vals := url.Values{}
	form.Find("input[name], select[name], textarea[name]").Each(func(_ int, s *goquery.Selection) {
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}
		name, _ := s.Attr("name")
		switch goquery.NodeName(s) {
		case "select":
			vals.Add(name, selectedValue(s))
		case "textarea":
			vals.Add(name, s.Text())
		default:
			kind, _ := s.Attr("type")
			switch strings.ToLower(kind) {
			case "submit", "button", "image", "reset":
				return
			case "checkbox", "radio":
				if _, checked := s.Attr("checked"); !checked {
					return
				}
			}
			v, _ := s.Attr("value")
			vals.Add(name, v)
		}
	})
	if submitter != nil {
		if name, ok := submitter.Attr("name"); ok && name != "" {
			v, _ := submitter.Attr("value")
			vals.Add(name, v)
		}
	}
	return vals
}

// submit sends form the way a browser would. The caller holds d.mu.
func (d *Driver) submit(ctx context.Context, form, submitter *goquery.Selection) error {
	action, _ := form.Attr("action")
	if submitter != nil {
		if a, ok := submitter.Attr("formaction"); ok {
			action = a
		}
	}
	ref, err := url.Parse(action)
	if err != nil {
		return err
	}
	target := d.loc.ResolveReference(ref)
	vals := formValues(form, submitter)

	method, _ := form.Attr("method")
	if strings.EqualFold(method, http.MethodPost) {
		return d.load(ctx, http.MethodPost, target, vals)
	}
	target.RawQuery = vals.Encode()
	return d.load(ctx, http.MethodGet, target, nil)
}
