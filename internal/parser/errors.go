package parser

import "errors"

// Errors returned when a network filter line cannot be compiled. None of them
// should stop a list from loading; the caller skips the line.
var (
	ErrFilterParse                 = errors.New("filter parse error")
	ErrNegatedBadFilter            = errors.New("negated badfilter option")
	ErrNegatedImportant            = errors.New("negated important option")
	ErrNegatedOptionMatchCase      = errors.New("negated match-case option")
	ErrNegatedExplicitCancel       = errors.New("negated explicitcancel option")
	ErrNegatedRedirection          = errors.New("negated redirect option")
	ErrNegatedTag                  = errors.New("negated tag option")
	ErrNegatedGenericHide          = errors.New("negated generichide option")
	ErrNegatedDocument             = errors.New("negated document option")
	ErrGenericHideWithoutException = errors.New("generichide without exception")
	ErrEmptyRedirection            = errors.New("empty redirect value")
	ErrEmptyRemoveparam            = errors.New("empty removeparam value")
	ErrNegatedRemoveparam          = errors.New("negated removeparam option")
	ErrRemoveparamWithException    = errors.New("removeparam on exception filter")
	ErrRemoveparamRegexUnsupported = errors.New("removeparam regex unsupported")
	ErrRedirectionURLInvalid       = errors.New("invalid redirect url")
	ErrMultipleModifierOptions     = errors.New("multiple modifier options")
	ErrUnrecognisedOption          = errors.New("unrecognised option")
	ErrNoRegex                     = errors.New("no regex")
	ErrFullRegexUnsupported        = errors.New("full regex unsupported")
	ErrRegexParsing                = errors.New("regex parsing error")
	ErrPunycode                    = errors.New("punycode error")
	ErrCspWithContentType          = errors.New("csp with content type")
	ErrMatchCaseWithoutFullRegex   = errors.New("match-case without full regex")
	ErrNoSupportedDomains          = errors.New("no supported domains")
)

// LineError ties a parse failure to its input line
type LineError struct {
	Line string
	Err  error
}

func (e *LineError) Error() string {
	return e.Err.Error() + ": " + e.Line
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func lineError(line string, err error) error {
	return &LineError{Line: line, Err: err}
}
