package lang

func tsSpec(l Language, exts ...string) *LanguageSpec {
	return &LanguageSpec{
		Language:       l,
		FileExtensions: exts,
		FunctionNodeTypes: []string{
			"function_declaration",
			"generator_function_declaration",
			"function_expression",
			"function",
			"generator_function",
			"arrow_function",
		},
		MethodNodeTypes: []string{"method_definition"},
		ClassNodeTypes: []string{
			"class_declaration",
			"class",
			"abstract_class_declaration",
		},
		CallNodeTypes:      []string{"call_expression"},
		ImportNodeTypes:    []string{"import_statement"},
		VariableNodeTypes:  []string{"variable_declarator"},
		CountedScopeLabels: jsCountedScopes,
		ThrowNodeTypes:     []string{"throw_statement"},
	}
}

func init() {
	Register(tsSpec(TypeScript, ".ts", ".mts", ".cts"))
	Register(tsSpec(TSX, ".tsx"))
}
