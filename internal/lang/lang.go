package lang

// Language identifies a supported source language.
type Language string

const (
	Go   Language = "go"
	Java Language = "java"
	PHP  Language = "php"
)

// All returns the closed set of supported languages. Adapter dispatch,
// file discovery, and IR language tags are all restricted to this set.
func All() []Language {
	return []Language{Go, Java, PHP}
}

// Valid reports whether l is one of the supported languages.
func Valid(l Language) bool {
	switch l {
	case Go, Java, PHP:
		return true
	}
	return false
}

// extensions maps file extensions to languages.
var extensions = map[string]Language{
	".go":   Go,
	".java": Java,
	".php":  PHP,
}

// ForExtension returns the Language for a file extension (e.g. ".go").
func ForExtension(ext string) (Language, bool) {
	l, ok := extensions[ext]
	return l, ok
}

// Extensions returns the file extensions handled by a language.
func Extensions(l Language) []string {
	var out []string
	for ext, lang := range extensions {
		if lang == l {
			out = append(out, ext)
		}
	}
	return out
}
