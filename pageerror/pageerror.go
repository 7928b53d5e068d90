// Package pageerror maps a page's HTTP status code to a human-readable
// error message.
package pageerror

import (
	"fmt"
	"net/http"
)

// NoResponse is returned when the navigation produced no HTTP response.
const NoResponse = "No response received"

var messages = map[int]string{
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Payload Too Large",
	414: "URI Too Long",
	415: "Unsupported Media Type",
	416: "Range Not Satisfiable",
	417: "Expectation Failed",
	418: "I'm a teapot",
	421: "Misdirected Request",
	422: "Unprocessable Entity",
	423: "Locked",
	424: "Failed Dependency",
	425: "Too Early",
	426: "Upgrade Required",
	428: "Precondition Required",
	429: "Too Many Requests",
	431: "Request Header Fields Too Large",
	451: "Unavailable For Legal Reasons",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
	506: "Variant Also Negotiates",
	507: "Insufficient Storage",
	508: "Loop Detected",
	510: "Not Extended",
	511: "Network Authentication Required",
}

// Classify returns the error message for a page status. status is nil when
// no response was received. A 200 yields no message; every other status,
// including an absent one, yields a non-empty message.
func Classify(status *int) (string, bool) {
	if status == nil {
		return NoResponse, true
	}
	code := *status
	if code == http.StatusOK {
		return "", false
	}
	if msg, ok := messages[code]; ok {
		return msg, true
	}
	if text := http.StatusText(code); text != "" {
		return text, true
	}
	return fmt.Sprintf("Unexpected status code %d", code), true
}
