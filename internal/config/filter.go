/*
Package config loads the two kinds of configuration ulpfilter understands: the filter rules
read from a key=value file (config.ini) and the process settings assembled from flags,
environment variables and an optional .env file.
*/
package config

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
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Record layouts understood by the classifier.
const (
	FormatURLEmailPass = "url:email:pass"
	FormatEmailPass    = "email:pass"
)

// Named output layouts for convert_format.
const (
	ConvertEmailPass = "email:pass"
	ConvertEmail     = "email"
	ConvertPass      = "pass"
)

const (
	// DefaultConfigPath is the filter rules file read when no --config flag is given.
	DefaultConfigPath = "config.ini"
	// DefaultSeparator is used when the rules file does not set one.
	DefaultSeparator = ":"
	// DefaultFormat is used when the rules file does not set one.
	DefaultFormat = FormatURLEmailPass
)

// Directive keys recognised in the rules file.
const (
	keySeparator     = "separator"
	keyFormat        = "format"
	keyConvertFormat = "convert_format"
	keyCustomFilter  = "custom_filter"
	keyIDNA          = "idna"
	keyEmailRemove   = "email_remove"
	keyEmailContains = "email_contains"
	keyURLRemove     = "url_remove"
	keyURLContains   = "url_contains"
)

var (
	// ErrInvalidConfig is returned for rules files that parse but cannot drive the classifier.
	ErrInvalidConfig = errors.New("invalid filter configuration")
	// ErrInvalidCustomFilter wraps the compile error of a bad custom_filter expression.
	ErrInvalidCustomFilter = errors.New("invalid custom_filter expression")
)

// Filter is the immutable rule set shared read-only by every worker.
// Nothing may modify a Filter after Load returns it.
type Filter struct {
	Separator     string     `yaml:"separator"`
	Format        string     `yaml:"format"`
	ConvertFormat string     `yaml:"convert_format,omitempty"`
	CustomFilter  string     `yaml:"custom_filter,omitempty"`
	IDNA          bool       `yaml:"idna"`
	EmailRemove   PatternSet `yaml:"email_remove"`
	EmailContains PatternSet `yaml:"email_contains"`
	URLRemove     PatternSet `yaml:"url_remove"`
	URLContains   PatternSet `yaml:"url_contains"`

	// Warnings collects non-fatal problems found while loading (suspicious patterns).
	Warnings []string `yaml:"-"`

	customRe  *regexp.Regexp
	customErr error
}

// iniOptions mirror the directive grammar: split on the first '=', no inline comments,
// no quote stripping, no line continuation, lines without '=' ignored.
var iniOptions = ini.LoadOptions{
	KeyValueDelimiters:         "=",
	IgnoreInlineComment:        true,
	PreserveSurroundedQuote:    true,
	IgnoreContinuation:         true,
	SkipUnrecognizableLines:    true,
	AllowShadows:               true,
	AllowDuplicateShadowValues: true,
}

// Load reads the rules file at path. A missing or unreadable file is an error the caller
// treats as fatal.
func Load(path string) (*Filter, error) {
	file, err := ini.LoadSources(iniOptions, path)
	if err != nil {
		return nil, fmt.Errorf("read filter config %s: %w", path, err)
	}
	return fromINI(file)
}

// Parse builds a Filter from rules held in memory.
func Parse(data []byte) (*Filter, error) {
	file, err := ini.LoadSources(iniOptions, data)
	if err != nil {
		return nil, fmt.Errorf("parse filter config: %w", err)
	}
	return fromINI(file)
}

func fromINI(file *ini.File) (*Filter, error) {
	f := &Filter{
		Separator:     DefaultSeparator,
		Format:        DefaultFormat,
		EmailRemove:   PatternSet{},
		EmailContains: PatternSet{},
		URLRemove:     PatternSet{},
		URLContains:   PatternSet{},
	}

	// Section headers carry no meaning; directives after a [header] line still apply.
	var idnaRaw string
	var lists = map[string][]string{}
	for _, section := range file.Sections() {
		for _, key := range section.Keys() {
			// ValueWithShadows drops a lone empty value; "separator=" must still reach validate.
			values := key.ValueWithShadows()
			if len(values) == 0 {
				values = []string{key.Value()}
			}
			last := strings.TrimSpace(values[len(values)-1])
			switch key.Name() {
			case keySeparator:
				f.Separator = last
			case keyFormat:
				f.Format = last
			case keyConvertFormat:
				f.ConvertFormat = last
			case keyCustomFilter:
				f.CustomFilter = last
			case keyIDNA:
				idnaRaw = last
			case keyEmailRemove, keyEmailContains, keyURLRemove, keyURLContains:
				lists[key.Name()] = append(lists[key.Name()], values...)
			}
		}
	}

	if idnaRaw != "" {
		enabled, err := strconv.ParseBool(idnaRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: idna=%q is not a boolean", ErrInvalidConfig, idnaRaw)
		}
		f.IDNA = enabled
	}

	targets := map[string]PatternSet{
		keyEmailRemove:   f.EmailRemove,
		keyEmailContains: f.EmailContains,
		keyURLRemove:     f.URLRemove,
		keyURLContains:   f.URLContains,
	}
	for _, name := range []string{keyEmailRemove, keyEmailContains, keyURLRemove, keyURLContains} {
		for _, value := range lists[name] {
			f.Warnings = append(f.Warnings, targets[name].addList(name, value, f.IDNA)...)
		}
	}

	if err := f.validate(); err != nil {
		return nil, err
	}

	if f.CustomFilter != "" {
		f.customRe, f.customErr = regexp.Compile("(?i)" + f.CustomFilter)
		if f.customErr != nil {
			f.customErr = fmt.Errorf("%w %q: %v", ErrInvalidCustomFilter, f.CustomFilter, f.customErr)
		}
	}

	return f, nil
}

func (f *Filter) validate() error {
	if f.Separator == "" {
		return fmt.Errorf("%w: separator must not be empty", ErrInvalidConfig)
	}
	switch f.Format {
	case FormatURLEmailPass, FormatEmailPass:
	default:
		return fmt.Errorf("%w: unsupported format %q (want %q or %q)",
			ErrInvalidConfig, f.Format, FormatURLEmailPass, FormatEmailPass)
	}
	return nil
}

// CustomFilterRegexp returns the compiled case-insensitive custom filter, nil when none is
// configured, or the compile error wrapped in ErrInvalidCustomFilter.
func (f *Filter) CustomFilterRegexp() (*regexp.Regexp, error) {
	return f.customRe, f.customErr
}

// URLRulesActive reports whether any URL domain rule is configured.
func (f *Filter) URLRulesActive() bool {
	return f.URLRemove.Len() > 0 || f.URLContains.Len() > 0
}
