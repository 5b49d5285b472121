package bootstrap

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
)

// ErrUnknownRuntime is returned for a token no backend declares.
var ErrUnknownRuntime = errors.New("unknown runtime")

// Mode says where the runtime token lives in the page URL.
type Mode int

const (
	// ModeHash reads the token from the fragment. A missing or unknown
	// fragment selects the default backend.
	ModeHash Mode = iota
	// ModeQuery reads the token from a query parameter. A missing parameter
	// selects the default backend; an unknown one is an error.
	ModeQuery
)

// ParseMode maps "hash" and "query" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "hash", "":
		return ModeHash, nil
	case "query":
		return ModeQuery, nil
	default:
		return 0, fmt.Errorf("invalid mode %q (expected hash or query)", s)
	}
}

// Selection is a backend resolved from a page URL.
type Selection struct {
	Backend  Backend
	Mode     Mode
	manifest Manifest
	page     *url.URL
}

// Select resolves the backend named by rawURL.
func (m Manifest) Select(rawURL string, mode Mode) (*Selection, error) {
	page, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	token := m.Default
	switch mode {
	case ModeHash:
		if _, ok := m.Backend(page.Fragment); ok {
			token = page.Fragment
		}
	case ModeQuery:
		if v := page.Query().Get(m.param()); v != "" {
			token = v
		}
	}

	b, ok := m.Backend(token)
	if !ok {
		return nil, fmt.Errorf("runtime %q: %w", token, ErrUnknownRuntime)
	}
	return &Selection{Backend: b, Mode: mode, manifest: m, page: page}, nil
}

// URL returns the page URL with the selected token written into it.
func (s *Selection) URL() string {
	return s.with(s.Backend.Token)
}

// Toggle returns the page URL selecting the backend after the current one.
func (s *Selection) Toggle() string {
	return s.with(s.Next().Token)
}

// Next returns the backend that Toggle switches to.
func (s *Selection) Next() Backend {
	bs := s.manifest.Backends
	for i, b := range bs {
		if b.Token == s.Backend.Token {
			return bs[(i+1)%len(bs)]
		}
	}
	return s.Backend
}

// ToggleLabel is the text shown on the toggle control: the current backend.
func (s *Selection) ToggleLabel() string {
	return s.Backend.Label
}

// ScriptTag renders the tag that loads the entry script on the backend.
func (s *Selection) ScriptTag() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<script type="%s" src="%s"`,
		html.EscapeString(s.Backend.Token), html.EscapeString(s.Backend.Entry))
	if s.Backend.Config != "" {
		fmt.Fprintf(&b, ` config="%s"`, html.EscapeString(s.Backend.Config))
	}
	b.WriteString("></script>")
	return b.String()
}

func (s *Selection) with(token string) string {
	u := *s.page
	switch s.Mode {
	case ModeQuery:
		q := u.Query()
		q.Set(s.manifest.param(), token)
		u.RawQuery = q.Encode()
	default:
		u.Fragment = token
		u.RawFragment = ""
	}
	return u.String()
}
