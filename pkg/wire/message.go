// Package wire implements the HTTP/1.1 dialect the devices speak over
// short-lived TCP connections. It is not HTTP: header keys are case
// sensitive, serialization is deterministic (headers sorted by key), and a
// body is terminated by a trailing CRLF CRLF rather than chunking or
// keep-alive framing.
package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"

	// DefaultContentType is attached to every constructed message unless
	// the caller supplied its own.
	DefaultContentType = "text/json; charset=utf-8"
)

// ErrBadMessage reports a stream whose start line could not be read.
var ErrBadMessage = errors.New("bad message")

// Message is one unit of the dialect: a start line, a case sensitive header
// map and an optional string body. `kind` and `Kind` are different headers.
type Message struct {
	startLine string
	headers   map[string]string
	body      string
}

// New builds a message. A Content-Type header is added when absent, and a
// Content-Length header is computed whenever a body is present.
func New(startLine string, headers map[string]string, body string) Message {
	m := Message{startLine: startLine, headers: make(map[string]string, len(headers)+2), body: body}
	for k, v := range headers {
		m.headers[k] = v
	}
	if _, ok := m.headers[HeaderContentType]; !ok {
		m.headers[HeaderContentType] = DefaultContentType
	}
	if body != "" {
		m.headers[HeaderContentLength] = strconv.Itoa(len(body))
	}
	return m
}

// Get builds a GET request for path.
func Get(path string) Message {
	return New("GET "+path+" HTTP/1.1", nil, "")
}

// Post builds a POST request for path.
func Post(path string) Message {
	return New("POST "+path+" HTTP/1.1", nil, "")
}

var reasonPhrases = map[int]string{
	200: "OK",
	400: "Bad Request",
	404: "Not Found",
	501: "Not Implemented",
}

// Response builds a response message. Only the four status codes the
// dialect uses are representable; any other code panics.
func Response(code int) Message {
	reason, ok := reasonPhrases[code]
	if !ok {
		panic(fmt.Sprintf("unsupported response code %d", code))
	}
	return New(fmt.Sprintf("HTTP/1.1 %d %s", code, reason), nil, "")
}

func Ok() Message {
	return Response(200)
}

// BadRequest builds a 400 response whose body explains the rejection.
func BadRequest(msg string) Message {
	return Response(400).WithBody(msg)
}

// WithHeader returns a copy of m with the header set.
func (m Message) WithHeader(key, value string) Message {
	headers := m.cloneHeaders()
	headers[key] = value
	return Message{startLine: m.startLine, headers: headers, body: m.body}
}

// WithHeaders returns a copy of m with all given headers set.
func (m Message) WithHeaders(h map[string]string) Message {
	headers := m.cloneHeaders()
	for k, v := range h {
		headers[k] = v
	}
	return Message{startLine: m.startLine, headers: headers, body: m.body}
}

// WithBody returns a copy of m carrying body, with Content-Length recomputed.
func (m Message) WithBody(body string) Message {
	headers := m.cloneHeaders()
	if body == "" {
		delete(headers, HeaderContentLength)
	} else {
		headers[HeaderContentLength] = strconv.Itoa(len(body))
	}
	return Message{startLine: m.startLine, headers: headers, body: body}
}

func (m Message) StartLine() string {
	return m.startLine
}

func (m Message) Body() string {
	return m.body
}

// Header looks up a header by its exact key.
func (m Message) Header(key string) (string, bool) {
	v, ok := m.headers[key]
	return v, ok
}

// Headers returns a copy of the header map.
func (m Message) Headers() map[string]string {
	return m.cloneHeaders()
}

// Path returns the request target, the second token of the start line.
func (m Message) Path() string {
	fields := strings.Fields(m.startLine)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// Write serializes the message: the start line, each header as
// "key: value" sorted ascending by key, a blank line, and the body (when
// present) terminated by CRLF CRLF. Every line break is CRLF.
func (m Message) Write(w io.Writer) error {
	_, err := io.WriteString(w, m.String())
	return err
}

func (m Message) String() string {
	keys := make([]string, 0, len(m.headers))
	for k := range m.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(m.startLine)
	sb.WriteString("\r\n")
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(m.headers[k])
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	if m.body != "" {
		sb.WriteString(m.body)
		sb.WriteString("\r\n\r\n")
	}
	return sb.String()
}

// Read parses one message from r. An unreadable or empty start line yields
// ErrBadMessage. Header lines that do not look like "key: value" are
// skipped. A body is read only when a positive Content-Length header is
// present; EOF before the blank line simply ends the headers, since peers
// close the connection after each exchange.
func Read(r *bufio.Reader) (Message, error) {
	startLine, err := readLine(r)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %s", ErrBadMessage, err)
	}
	if startLine == "" {
		return Message{}, fmt.Errorf("%w: empty start line", ErrBadMessage)
	}

	headers := map[string]string{}
	for {
		line, err := readLine(r)
		if err != nil || line == "" {
			break
		}
		key, value, found := strings.Cut(line, ": ")
		if !found || key == "" {
			continue
		}
		headers[key] = value
	}

	body := ""
	if n, err := strconv.Atoi(headers[HeaderContentLength]); err == nil && n > 0 {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Message{}, fmt.Errorf("reading %d byte body: %w", n, err)
		}
		body = string(buf)
	}

	return Message{startLine: startLine, headers: headers, body: body}, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}

func (m Message) cloneHeaders() map[string]string {
	headers := make(map[string]string, len(m.headers)+1)
	for k, v := range m.headers {
		headers[k] = v
	}
	return headers
}
