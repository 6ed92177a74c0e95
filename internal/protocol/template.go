package protocol

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

var templateFuncs = sprig.TxtFuncMap()

// Message templates for agent-facing text.
const (
	tmplInvalidFormat = `Invalid message format: unable to parse`
	tmplUnknownAction = `Unknown action: {{ .Name | quote }}`
	tmplUnknownQuery  = `Unknown query: {{ .Name | quote }}`
	tmplUnknownSystem = `Unknown system command: {{ .Name | quote }}`
	tmplInvalidMove   = `Invalid move: {{ .Reason }}`
	tmplWaitTimestep  = `Observations are delivered each timestep; wait for timestep {{ add1 .TimeStep }}`
)

// ExpandTemplate expands a template string using the provided data.
func ExpandTemplate(tmplStr string, data any) (string, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

// expand renders a built-in template, which can only fail on a programming error.
func expand(tmplStr string, data any) string {
	s, err := ExpandTemplate(tmplStr, data)
	if err != nil {
		return tmplStr
	}
	return s
}
