package decoderui

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/railscope/internal/railcom"
)

//go:embed templates/index.html
var templateFS embed.FS

// maxInputLen bounds the text accepted by the page and the API.
const maxInputLen = 64 << 10

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Input       string
	Error       string
	ByteListing string
	RawIDs      string
	Payloads    string
	APIPath     string
}

// handlePage renders the decoder form. A non-empty input query parameter is
// decoded on the server, so the page works without JavaScript.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Input:   r.URL.Query().Get("input"),
		APIPath: decodePath,
	}
	switch {
	case len(data.Input) > maxInputLen:
		data.Error = "Input is too long."
		data.Input = ""
	case strings.TrimSpace(data.Input) != "":
		report := railcom.Decode(data.Input)
		data.ByteListing = report.ByteListing()
		data.RawIDs = report.RawIDs()
		data.Payloads = report.Payloads()
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("Failed to render decoder page.", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}
