package server

import (
	"os"
	"path/filepath"
)

const (
	pageHello    = "hello.html"
	pageNotFound = "404.html"
)

var builtinPages = map[string]string{
	pageHello: `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>Hello!</title>
  </head>
  <body>
    <h1>Hello!</h1>
    <p>Hi from hellod</p>
  </body>
</html>
`,
	pageNotFound: `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>Hello!</title>
  </head>
  <body>
    <h1>Oops!</h1>
    <p>Sorry, I don't know what you're asking for.</p>
  </body>
</html>
`,
}

// pages resolves page names against a root directory, falling back to the built-in pages.
// Files are read on every request so edits show up without a restart.
type pages struct {
	root string
}

func newPages(root string) *pages { return &pages{root: root} }

func (p *pages) get(name string) string {
	if p.root != "" {
		if b, err := os.ReadFile(filepath.Join(p.root, name)); err == nil {
			return string(b)
		}
	}
	return builtinPages[name]
}
