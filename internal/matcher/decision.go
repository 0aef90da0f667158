package matcher

import (
	"github.com/bnema/ublock-network-filters/internal/models"
	"github.com/bnema/ublock-network-filters/internal/request"
)

// Verdict is the outcome of evaluating a filter set against a request
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictBlock
	VerdictAllow
	VerdictImportant
)

func (v Verdict) String() string {
	switch v {
	case VerdictBlock:
		return "block"
	case VerdictAllow:
		return "allow (exception)"
	case VerdictImportant:
		return "block (important)"
	default:
		return "pass"
	}
}

// Decision explains a Verdict
type Decision struct {
	Verdict Verdict
	// Filter that settled the verdict, nil for VerdictNone
	Filter *models.NetworkFilter
	// Redirect resource for blocked requests, if a redirect filter matched
	Redirect string
	// Matched holds every filter that applied, in input order
	Matched []*models.NetworkFilter
}

// blocks reports whether f can block on its own. csp and removeparam filters
// modify requests, and redirect-rule only redirects what something else blocks.
func blocks(f *models.NetworkFilter) bool {
	if f.IsCSP() || f.IsRemoveparam() {
		return false
	}
	return !f.IsRedirect() || f.AlsoBlockRedirect()
}

// Decide evaluates filters against req. $important blocks override
// exceptions, which override plain blocks.
func Decide(filters []*models.NetworkFilter, req *request.Request, cache RegexCache) Decision {
	var d Decision
	var block, important, exception, redirect *models.NetworkFilter

	for _, f := range filters {
		if !Matches(f, req, cache) {
			continue
		}
		d.Matched = append(d.Matched, f)

		switch {
		case f.IsException():
			if exception == nil {
				exception = f
			}
		case f.IsRedirect() && (redirect == nil || (f.IsImportant() && !redirect.IsImportant())):
			redirect = f
		}

		if f.IsException() || !blocks(f) {
			continue
		}
		if f.IsImportant() && important == nil {
			important = f
		}
		if block == nil {
			block = f
		}
	}

	switch {
	case important != nil:
		d.Verdict, d.Filter = VerdictImportant, important
	case exception != nil && block != nil:
		d.Verdict, d.Filter = VerdictAllow, exception
		return d
	case block != nil:
		d.Verdict, d.Filter = VerdictBlock, block
	default:
		// redirect-rule alone does not block
		return d
	}

	if redirect != nil {
		d.Redirect = redirect.ModifierOption
	}
	return d
}
