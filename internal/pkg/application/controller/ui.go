package controller

import (
	_ "embed"
	"html/template"
	"strings"
)

//go:embed assets/index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index.html").Parse(indexHTML))

// containerBackend is where a browser outside the container reaches a
// containerized controller, assuming the default port is published.
const containerBackend = "localhost:6565"

// renderUI renders the web UI with the backend address the browser should
// poll: the published localhost port in container mode, this controller's
// own address otherwise.
func (c *Controller) renderUI() (string, error) {
	backend := c.addr.String()
	if c.container {
		backend = containerBackend
	}

	var sb strings.Builder
	if err := indexTemplate.Execute(&sb, struct{ Backend string }{Backend: backend}); err != nil {
		return "", err
	}

	return sb.String(), nil
}
