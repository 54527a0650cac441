package lang

// Language represents a supported programming language.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{JavaScript, TypeScript, TSX}
}

// LanguageSpec defines the tree-sitter node types the analyzer looks for.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string
	// FunctionNodeTypes open a named scope. Anonymous ones take the name of
	// the variable or property they are assigned to.
	FunctionNodeTypes []string
	MethodNodeTypes   []string
	ClassNodeTypes    []string
	CallNodeTypes     []string
	ImportNodeTypes   []string
	// VariableNodeTypes are declarator kinds (one per declared name).
	VariableNodeTypes []string
	// CountedScopeLabels maps anonymous block kinds to the label used for
	// their counted scope segment ("if", "for", ...).
	CountedScopeLabels map[string]string
	ThrowNodeTypes     []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".ts").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// Has reports whether kind is one of kinds.
func Has(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

var jsCountedScopes = map[string]string{
	"if_statement":     "if",
	"else_clause":      "else",
	"for_statement":    "for",
	"for_in_statement": "for",
	"while_statement":  "while",
	"do_statement":     "do",
	"switch_statement": "switch",
	"try_statement":    "try",
	"catch_clause":     "catch",
	"finally_clause":   "finally",
}
