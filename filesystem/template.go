// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filesystem

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

type templateOptions struct {
	leftDelim  string
	rightDelim string
	funcs      template.FuncMap
}

func defaultTemplateOptions() *templateOptions {
	return &templateOptions{
		funcs: template.FuncMap{
			"env": os.Getenv,
			"default": func(s string, v any) any {
				if len(s) == 0 {
					return v
				}
				return s
			},
		},
	}
}

// TemplateOption customizes how files are rendered by RenderTemplates.
type TemplateOption func(*templateOptions)

// TemplateFunc registers the given function, f, for use in templates
// via the given name. The "env" and "default" functions are always
// available unless replaced.
func TemplateFunc(name string, f any) TemplateOption {
	return func(to *templateOptions) {
		to.funcs[name] = f
	}
}

// TemplateDelims sets the action delimiters to the specified strings.
// An empty delimiter stands for the corresponding default: {{ or }}.
func TemplateDelims(left, right string) TemplateOption {
	return func(to *templateOptions) {
		to.leftDelim = left
		to.rightDelim = right
	}
}

// TemplateParseError occurs when a file is not a valid text/template.
type TemplateParseError struct {
	Cause error
}

// Error implements the error interface.
func (e TemplateParseError) Error() string {
	return fmt.Sprintf("failed to parse template: %s", e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e TemplateParseError) Unwrap() error {
	return e.Cause
}

// TemplateExecError occurs when a template fails to execute. Most
// likely cause is a template function returning an error or panicing.
type TemplateExecError struct {
	Cause error
}

// Error implements the error interface.
func (e TemplateExecError) Error() string {
	return fmt.Sprintf("failed to exec template: %s", e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e TemplateExecError) Unwrap() error {
	return e.Cause
}

func render(name string, b []byte, to *templateOptions) ([]byte, error) {
	tmpl, err := template.New(name).
		Delims(to.leftDelim, to.rightDelim).
		Funcs(to.funcs).
		Parse(string(b))
	if err != nil {
		return nil, TemplateParseError{Cause: err}
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct{}{})
	if err != nil {
		return nil, TemplateExecError{Cause: err}
	}
	return buf.Bytes(), nil
}
