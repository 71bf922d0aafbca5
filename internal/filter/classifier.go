package filter

/*
ulpfilter — fast filter for url:login:pass credential lists in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/x-stp/ulpfilter/internal/config"
)

// Reason is the outcome of classifying one line.
type Reason uint8

const (
	Accepted Reason = iota
	RejectEmpty
	RejectFields
	RejectLogin
	RejectEmailDomain
	RejectURLDomain
	RejectCustomFilter
	RejectEmptyOutput
	// RejectDuplicate is never produced by the classifier; the pipeline assigns it after
	// consulting the duplicate set.
	RejectDuplicate
)

// RejectReasons lists every rejection outcome, in declaration order.
var RejectReasons = []Reason{
	RejectEmpty,
	RejectFields,
	RejectLogin,
	RejectEmailDomain,
	RejectURLDomain,
	RejectCustomFilter,
	RejectEmptyOutput,
	RejectDuplicate,
}

func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectEmpty:
		return "empty"
	case RejectFields:
		return "fields"
	case RejectLogin:
		return "login"
	case RejectEmailDomain:
		return "email_domain"
	case RejectURLDomain:
		return "url_domain"
	case RejectCustomFilter:
		return "custom_filter"
	case RejectEmptyOutput:
		return "empty_output"
	case RejectDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Record holds the fields extracted from one line. It lives only for the duration of a
// Classify call and whatever the caller does with it afterwards.
type Record struct {
	Raw    string
	Tokens []string
	// Fields are the logical columns convert_format indices refer to: url, login and pass
	// for url:email:pass (the url keeping any embedded separators), the raw tokens otherwise.
	Fields      []string
	URL         string
	Login       string
	Pass        string
	EmailDomain string
	URLDomain   string
	Output      string
}

type outputLayout uint8

const (
	layoutRaw outputLayout = iota
	layoutColumns
	layoutLoginPass
	layoutLogin
	layoutPass
)

// Classifier turns raw lines into accepted output strings according to a config.Filter.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	cfg       *config.Filter
	custom    *regexp.Regexp
	customErr error
	layout    outputLayout
	columns   []int // 1-based; -1 marks an index too large to ever be in range
}

// New prepares a classifier for cfg. The convert_format is resolved once here.
func New(cfg *config.Filter) *Classifier {
	c := &Classifier{cfg: cfg}
	c.custom, c.customErr = cfg.CustomFilterRegexp()
	c.layout, c.columns = resolveLayout(cfg)
	return c
}

func resolveLayout(cfg *config.Filter) (outputLayout, []int) {
	if columns, ok := parseColumns(cfg.ConvertFormat, cfg.Separator); ok {
		return layoutColumns, columns
	}
	switch {
	case cfg.ConvertFormat == config.ConvertEmailPass && cfg.Format == config.FormatURLEmailPass:
		return layoutLoginPass, nil
	case cfg.Format == config.FormatEmailPass && cfg.ConvertFormat == config.ConvertEmail:
		return layoutLogin, nil
	case cfg.Format == config.FormatEmailPass && cfg.ConvertFormat == config.ConvertPass:
		return layoutPass, nil
	}
	return layoutRaw, nil
}

// parseColumns accepts convert_format values such as "2:3" where every separator-delimited
// token is a decimal number.
func parseColumns(convert, sep string) ([]int, bool) {
	if convert == "" {
		return nil, false
	}
	parts := strings.Split(convert, sep)
	columns := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || !isDecimal(part) {
			return nil, false
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			n = -1
		}
		columns = append(columns, n)
	}
	return columns, true
}

func isDecimal(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Process is the accept/reject decision for one line: the output string and true when the
// line is accepted. A non-nil error means the configuration cannot be applied at all.
func (c *Classifier) Process(line string) (string, bool, error) {
	rec, reason, err := c.Classify(line)
	if err != nil || reason != Accepted {
		return "", false, err
	}
	return rec.Output, true, nil
}

// Classify parses line and applies every rule, returning the populated record and the
// outcome. The only error is an uncompilable custom_filter.
func (c *Classifier) Classify(line string) (Record, Reason, error) {
	rec := Record{Raw: line}
	if line == "" {
		return rec, RejectEmpty, nil
	}

	sep := c.cfg.Separator
	rec.Tokens = strings.Split(line, sep)
	n := len(rec.Tokens)

	switch c.cfg.Format {
	case config.FormatURLEmailPass:
		if n < 3 {
			return rec, RejectFields, nil
		}
		// Everything before login is the URL, so separators embedded in it survive.
		rec.Fields = []string{strings.Join(rec.Tokens[:n-2], sep), rec.Tokens[n-2], rec.Tokens[n-1]}
		rec.URL = trimField(rec.Fields[0])
		rec.Login = trimField(rec.Fields[1])
		rec.Pass = trimField(rec.Fields[2])
	case config.FormatEmailPass:
		if n < 2 {
			return rec, RejectFields, nil
		}
		rec.Fields = rec.Tokens
		rec.Login = trimField(rec.Tokens[0])
		rec.Pass = trimField(rec.Tokens[1])
	default:
		return rec, RejectFields, nil
	}

	if !IsValidEmail(rec.Login) || IsPhoneNumber(rec.Login) {
		return rec, RejectLogin, nil
	}

	rec.EmailDomain = c.host(EmailDomain(rec.Login))
	if !CheckDomain(rec.EmailDomain, c.cfg.EmailRemove, c.cfg.EmailContains) {
		return rec, RejectEmailDomain, nil
	}

	if c.cfg.URLRulesActive() && rec.URL != "" {
		rec.URLDomain = c.host(URLDomain(rec.URL))
		if !CheckDomain(rec.URLDomain, c.cfg.URLRemove, c.cfg.URLContains) {
			return rec, RejectURLDomain, nil
		}
	}

	if c.customErr != nil {
		return rec, RejectCustomFilter, c.customErr
	}
	if c.custom != nil && !c.custom.MatchString(line) {
		return rec, RejectCustomFilter, nil
	}

	rec.Output = c.render(&rec)
	if rec.Output == "" {
		return rec, RejectEmptyOutput, nil
	}
	return rec, Accepted, nil
}

func (c *Classifier) host(domain string) string {
	if !c.cfg.IDNA {
		return domain
	}
	ascii, err := config.ToASCII(domain)
	if err != nil {
		return domain
	}
	return ascii
}

func (c *Classifier) render(rec *Record) string {
	sep := c.cfg.Separator
	switch c.layout {
	case layoutColumns:
		picked := make([]string, 0, len(c.columns))
		for _, col := range c.columns {
			if col >= 1 && col <= len(rec.Fields) {
				picked = append(picked, trimField(rec.Fields[col-1]))
			}
		}
		return strings.Join(picked, sep)
	case layoutLoginPass:
		return rec.Login + sep + rec.Pass
	case layoutLogin:
		return rec.Login
	case layoutPass:
		return rec.Pass
	default:
		return rec.Raw
	}
}
