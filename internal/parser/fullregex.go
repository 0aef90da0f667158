//go:build !nofullregex

package parser

// fullRegexHandling enables author-supplied /regex/ filters
const fullRegexHandling = true
