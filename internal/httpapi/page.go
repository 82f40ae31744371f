package httpapi

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/DoyleJ11/stars-party/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.New("").Funcs(template.FuncMap{
	"placeholder": func() string { return view.PlaceholderImage },
}).ParseFS(templateFS, "templates/*.html"))

// RenderPage writes the full document.
func RenderPage(w io.Writer, p view.Page) error {
	return pageTmpl.ExecuteTemplate(w, "page", p)
}

// RenderApp renders only the live region the browser swaps on each push.
func RenderApp(p view.Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, "app", p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
