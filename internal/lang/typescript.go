package lang

func init() {
	Register(&LanguageSpec{
		Language:       TypeScript,
		FileExtensions: []string{".ts"},
		FunctionNodeTypes: []string{
			"function_declaration",
			"generator_function_declaration",
			"function_expression",
			"arrow_function",
			"method_definition",
			"function_signature",
		},
		ClassNodeTypes: []string{
			"class_declaration",
			"class",
			"abstract_class_declaration",
		},
		FieldNodeTypes:      []string{"public_field_definition"},
		ModuleNodeTypes:     []string{"program"},
		CallNodeTypes:       []string{"call_expression", "new_expression"},
		ImportNodeTypes:     []string{"import_statement"},
		ImportFromTypes:     []string{"import_statement"},
		AttributeNodeTypes:  []string{"member_expression"},
		AssignmentNodeTypes: []string{"assignment_expression", "augmented_assignment_expression"},
		DecoratorNodeTypes:  []string{"decorator"},
		PackageIndicators:   []string{"package.json"},
	})
	Register(&LanguageSpec{
		Language:       TSX,
		FileExtensions: []string{".tsx"},
		FunctionNodeTypes: []string{
			"function_declaration",
			"generator_function_declaration",
			"function_expression",
			"arrow_function",
			"method_definition",
			"function_signature",
		},
		ClassNodeTypes: []string{
			"class_declaration",
			"class",
			"abstract_class_declaration",
		},
		FieldNodeTypes:      []string{"public_field_definition"},
		ModuleNodeTypes:     []string{"program"},
		CallNodeTypes:       []string{"call_expression", "new_expression"},
		ImportNodeTypes:     []string{"import_statement"},
		ImportFromTypes:     []string{"import_statement"},
		AttributeNodeTypes:  []string{"member_expression"},
		AssignmentNodeTypes: []string{"assignment_expression", "augmented_assignment_expression"},
		DecoratorNodeTypes:  []string{"decorator"},
		PackageIndicators:   []string{"package.json"},
	})
}
