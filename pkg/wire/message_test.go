package wire

import (
	"bufio"
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestOkSerialization(t *testing.T) {
	is := is.New(t)

	is.Equal(Ok().String(), "HTTP/1.1 200 OK\r\nContent-Type: text/json; charset=utf-8\r\n\r\n")
}

func TestBodySerialization(t *testing.T) {
	is := is.New(t)

	m := Ok().WithBody("Hello, World!")
	is.Equal(m.String(),
		"HTTP/1.1 200 OK\r\n"+
			"Content-Length: 13\r\n"+
			"Content-Type: text/json; charset=utf-8\r\n"+
			"\r\n"+
			"Hello, World!\r\n\r\n")
}

func TestHeadersSerializeSorted(t *testing.T) {
	is := is.New(t)

	m := Get("/datum/a").WithHeaders(map[string]string{"unit": "°C", "kind": "float"})
	is.Equal(m.String(),
		"GET /datum/a HTTP/1.1\r\n"+
			"Content-Type: text/json; charset=utf-8\r\n"+
			"kind: float\r\n"+
			"unit: °C\r\n"+
			"\r\n")
}

func TestHeaderKeysAreCaseSensitive(t *testing.T) {
	is := is.New(t)

	m := Ok().WithHeader("kind", "float")

	v, ok := m.Header("kind")
	is.True(ok)
	is.Equal(v, "float")

	_, ok = m.Header("Kind")
	is.Equal(ok, false)
}

func TestRoundTrip(t *testing.T) {
	is := is.New(t)

	sent := Post("/command").
		WithHeaders(map[string]string{"id": "a", "model": "thermo5000"}).
		WithBody(`{"name":"HeatBy","value":"5.0"}`)

	var sb strings.Builder
	is.NoErr(sent.Write(&sb))

	got, err := Read(bufio.NewReader(strings.NewReader(sb.String())))
	is.NoErr(err)
	is.Equal(got.StartLine(), sent.StartLine())
	is.Equal(got.Headers(), sent.Headers())
	is.Equal(got.Body(), sent.Body())
}

func TestRoundTripBodyWithCRLF(t *testing.T) {
	is := is.New(t)

	body := "line one\r\nline two\r\n\r\nline three"
	sent := Ok().WithBody(body)

	got, err := Read(bufio.NewReader(strings.NewReader(sent.String())))
	is.NoErr(err)
	is.Equal(got.Body(), body)
}

func TestReadSkipsMalformedHeaderLines(t *testing.T) {
	is := is.New(t)

	raw := "GET /data HTTP/1.1\r\nnot-a-header\r\nkind: float\r\n\r\n"
	got, err := Read(bufio.NewReader(strings.NewReader(raw)))
	is.NoErr(err)

	v, ok := got.Header("kind")
	is.True(ok)
	is.Equal(v, "float")
	is.Equal(len(got.Headers()), 1)
}

func TestReadEmptyStreamIsBadMessage(t *testing.T) {
	is := is.New(t)

	_, err := Read(bufio.NewReader(strings.NewReader("")))
	is.True(errors.Is(err, ErrBadMessage))
}

func TestReadBlankStartLineIsBadMessage(t *testing.T) {
	is := is.New(t)

	_, err := Read(bufio.NewReader(strings.NewReader("\r\n\r\n")))
	is.True(errors.Is(err, ErrBadMessage))
}

func TestReadStopsAtContentLength(t *testing.T) {
	is := is.New(t)

	raw := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhithere\r\n\r\n"
	got, err := Read(bufio.NewReader(strings.NewReader(raw)))
	is.NoErr(err)
	is.Equal(got.Body(), "hi")
}

func TestResponseCodes(t *testing.T) {
	is := is.New(t)

	is.Equal(Response(200).StartLine(), "HTTP/1.1 200 OK")
	is.Equal(Response(400).StartLine(), "HTTP/1.1 400 Bad Request")
	is.Equal(Response(404).StartLine(), "HTTP/1.1 404 Not Found")
	is.Equal(Response(501).StartLine(), "HTTP/1.1 501 Not Implemented")
}

func TestUnsupportedResponseCodePanics(t *testing.T) {
	is := is.New(t)

	defer func() {
		is.True(recover() != nil)
	}()
	Response(418)
}

func TestBadRequestCarriesExplanation(t *testing.T) {
	is := is.New(t)

	m := BadRequest("unknown Sensor ID 'x'")
	is.Equal(m.StartLine(), "HTTP/1.1 400 Bad Request")
	is.Equal(m.Body(), "unknown Sensor ID 'x'")

	v, ok := m.Header(HeaderContentLength)
	is.True(ok)
	is.Equal(v, "21")
}

func TestPath(t *testing.T) {
	is := is.New(t)

	is.Equal(Get("/datum/abc").Path(), "/datum/abc")
	is.Equal(Post("/command").Path(), "/command")
	is.Equal(Ok().Path(), "200")
}
