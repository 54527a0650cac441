package lang

func init() {
	Register(&LanguageSpec{
		Language:       JavaScript,
		FileExtensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		FunctionNodeTypes: []string{
			"function_declaration",
			"generator_function_declaration",
			"function_expression",
			"function",
			"generator_function",
			"arrow_function",
		},
		MethodNodeTypes:    []string{"method_definition"},
		ClassNodeTypes:     []string{"class_declaration", "class"},
		CallNodeTypes:      []string{"call_expression"},
		ImportNodeTypes:    []string{"import_statement"},
		VariableNodeTypes:  []string{"variable_declarator"},
		CountedScopeLabels: jsCountedScopes,
		ThrowNodeTypes:     []string{"throw_statement"},
	})
}
