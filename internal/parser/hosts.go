package parser

import (
	"regexp"
	"strings"

	"github.com/miekg/dns"

	"github.com/bnema/ublock-network-filters/internal/models"
)

var invalidHostChars = regexp.MustCompile("[/^*!?$&(){}\\[\\]+=~`\\s\\v|@,'\"><:;]")

// ParseHostsStyle turns a bare hostname into the equivalent ||hostname^ filter
func ParseHostsStyle(hostname string, debug bool) (*models.NetworkFilter, error) {
	if invalidHostChars.MatchString(hostname) {
		return nil, lineError(hostname, ErrFilterParse)
	}

	// Refuse whole TLDs and trailing dots
	if !strings.Contains(hostname, ".") ||
		(strings.HasPrefix(hostname, ".") && !strings.Contains(hostname[1:], ".")) ||
		strings.HasSuffix(hostname, ".") {
		return nil, lineError(hostname, ErrFilterParse)
	}

	host := trimWWW(strings.ToLower(hostname))
	if !isASCII(host) {
		ascii, err := hostProfile.ToASCII(host)
		if err != nil {
			return nil, lineError(hostname, ErrPunycode)
		}
		host = ascii
	}

	return Parse("||"+host+"^", debug, models.ParseOptions{})
}

// hostsLineHost extracts the hostname from a hosts file entry such as
// "0.0.0.0 example.com" or a bare "example.com". ok is false for entries that
// do not block anything.
func hostsLineHost(line string) (host string, ok bool) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return "", false
	case 1:
		host = fields[0]
	default:
		switch fields[0] {
		case "0.0.0.0", "127.0.0.1", "::", "::1":
		default:
			return "", false
		}
		host = fields[1]
	}

	switch host {
	case "localhost", "localhost.localdomain", "local", "broadcasthost", "0.0.0.0":
		return "", false
	}
	if _, valid := dns.IsDomainName(host); !valid {
		return "", false
	}
	return host, true
}
