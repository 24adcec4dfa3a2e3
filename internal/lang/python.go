package lang

func init() {
	Register(&LanguageSpec{
		Language:            Python,
		FileExtensions:      []string{".py"},
		FunctionNodeTypes:   []string{"function_definition"},
		ClassNodeTypes:      []string{"class_definition"},
		ModuleNodeTypes:     []string{"module"},
		CallNodeTypes:       []string{"call"},
		ImportNodeTypes:     []string{"import_statement"},
		ImportFromTypes:     []string{"import_from_statement"},
		AttributeNodeTypes:  []string{"attribute"},
		AssignmentNodeTypes: []string{"assignment", "augmented_assignment"},
		DecoratorNodeTypes:  []string{"decorator"},
		PackageIndicators:   []string{"__init__.py"},
	})
}
