package extract

import (
	"net/url"
	"path"
	"strings"
)

// Format identifies the extraction strategy of a document.
type Format int

const (
	Plain Format = iota
	Markdown
	LaTeX
	HTML
	Go
	Python
	Rust
	JavaScript
	TypeScript
	TSX
	C
	CPP
)

var formatNames = map[Format]string{
	Plain:      "plaintext",
	Markdown:   "markdown",
	LaTeX:      "latex",
	HTML:       "html",
	Go:         "go",
	Python:     "python",
	Rust:       "rust",
	JavaScript: "javascript",
	TypeScript: "typescript",
	TSX:        "typescriptreact",
	C:          "c",
	CPP:        "cpp",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "plaintext"
}

// IsSource reports whether only comments of the format carry prose.
func (f Format) IsSource() bool {
	return f >= Go
}

var languageIDs = map[string]Format{
	"markdown":        Markdown,
	"latex":           LaTeX,
	"tex":             LaTeX,
	"html":            HTML,
	"go":              Go,
	"python":          Python,
	"rust":            Rust,
	"javascript":      JavaScript,
	"javascriptreact": JavaScript,
	"typescript":      TypeScript,
	"typescriptreact": TSX,
	"c":               C,
	"cpp":             CPP,
	"plaintext":       Plain,
}

var extensions = map[string]Format{
	".md":       Markdown,
	".markdown": Markdown,
	".tex":      LaTeX,
	".latex":    LaTeX,
	".sty":      LaTeX,
	".cls":      LaTeX,
	".html":     HTML,
	".htm":      HTML,
	".xhtml":    HTML,
	".go":       Go,
	".py":       Python,
	".pyi":      Python,
	".rs":       Rust,
	".js":       JavaScript,
	".jsx":      JavaScript,
	".mjs":      JavaScript,
	".cjs":      JavaScript,
	".ts":       TypeScript,
	".mts":      TypeScript,
	".cts":      TypeScript,
	".tsx":      TSX,
	".c":        C,
	".h":        C,
	".cpp":      CPP,
	".cc":       CPP,
	".cxx":      CPP,
	".hpp":      CPP,
	".hxx":      CPP,
	".hh":       CPP,
}

// DetectFormat picks the format from the LSP languageId when it is known and
// from the file extension of uri otherwise.
func DetectFormat(uri string, languageID string) Format {
	if f, ok := languageIDs[strings.ToLower(languageID)]; ok && f != Plain {
		return f
	}
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	if f, ok := extensions[strings.ToLower(path.Ext(p))]; ok {
		return f
	}
	return Plain
}

// Supported reports whether a file path has an extension with a dedicated
// strategy or is a plain text file.
func Supported(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if _, ok := extensions[ext]; ok {
		return true
	}
	return ext == ".txt"
}
