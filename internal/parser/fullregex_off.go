//go:build nofullregex

package parser

const fullRegexHandling = false
