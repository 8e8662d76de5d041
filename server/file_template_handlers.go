package server

import (
	"embed"
	"html/template"

	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templateFiles embed.FS

// loginErrorMessages turns the error codes carried on /login redirects into text for the form.
// Unknown codes are shown as they are.
var loginErrorMessages = map[string]string{
	"invalid_credentials": "Invalid username or password",
	"missing_credentials": "Username and password are required",
}

var templateFuncs = template.FuncMap{
	"loginError": func(code string) string {
		if msg, ok := loginErrorMessages[code]; ok {
			return msg
		}
		return code
	},
}

// parseTemplate parses one of the embedded pages.
func parseTemplate(name string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFiles, "templates/"+name)
	if err != nil {
		return nil, errors.Wrapf(err, "parse template %s", name)
	}
	return tmpl, nil
}
