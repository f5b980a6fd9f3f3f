package errors

// Code identifies the violated invariant. The set is closed: one code per
// invariant, shared by every section decoder.
type Code uint16

const (
	CodeNone Code = iota

	// header
	CodeInvalidMagic
	CodeUnsupportedVersion

	// scalar codec
	CodeUnexpectedEndOfInput
	CodeIntegerTooLarge
	CodeInvalidName

	// section framing
	CodeSectionSizeExceedsInput
	CodeSectionSizeMismatch
	CodeSectionOutOfOrder
	CodeDuplicateSection
	CodeUnknownSectionID

	// counted vectors
	CodeInvalidTypeCount
	CodeInvalidImportCount
	CodeInvalidFunctionCount
	CodeInvalidTableCount
	CodeInvalidMemoryCount
	CodeInvalidGlobalCount
	CodeInvalidExportCount
	CodeInvalidElementCount
	CodeInvalidCodeCount
	CodeInvalidDataCount
	CodeInvalidTagCount
	CodeSizeExceedsPlatformLimit
	CodeImportDefinedCountOverflow
	CodeResolvedCountExceedsDeclared
	CodeResolvedCountMismatch

	// entries
	CodeTerminatorNotFound
	CodeInvalidConstOpcode
	CodeInvalidFuncTypeForm
	CodeInvalidValueType
	CodeTooManyResults
	CodeInvalidExternKind
	CodeInvalidMutability
	CodeMutableGlobalDisabled
	CodeInvalidLimitsFlags
	CodeLimitsMinExceedsMax
	CodeMemoryPagesExceedLimit
	CodeInvalidPageSize
	CodeMultipleTables
	CodeMultipleMemories
	CodeInvalidElementMode
	CodeInvalidElemKind
	CodeInvalidDataMode
	CodeTooManyLocals
	CodeDuplicateExportName
	CodeInvalidTagAttribute

	// whole-module checks
	CodeFunctionCodeCountMismatch
	CodeDataCountMismatch
	CodeIndexOutOfRange
	CodeInvalidStartSignature

	// composition
	CodeFeatureConflict
	CodeMissingSectionHandler
	CodeMissingDependency
	CodeDuplicateFeature

	// evaluation
	CodeConstTypeMismatch
	CodeConstStackMismatch
	CodeGlobalIndexOutOfRange

	// engine
	CodeEngineRejected
)

var codeNames = [...]string{
	CodeNone:                         "none",
	CodeInvalidMagic:                 "invalid_magic",
	CodeUnsupportedVersion:           "unsupported_version",
	CodeUnexpectedEndOfInput:         "unexpected_end_of_input",
	CodeIntegerTooLarge:              "integer_too_large",
	CodeInvalidName:                  "invalid_name",
	CodeSectionSizeExceedsInput:      "section_size_exceeds_input",
	CodeSectionSizeMismatch:          "section_size_mismatch",
	CodeSectionOutOfOrder:            "section_out_of_order",
	CodeDuplicateSection:             "duplicate_section",
	CodeUnknownSectionID:             "unknown_section_id",
	CodeInvalidTypeCount:             "invalid_type_count",
	CodeInvalidImportCount:           "invalid_import_count",
	CodeInvalidFunctionCount:         "invalid_function_count",
	CodeInvalidTableCount:            "invalid_table_count",
	CodeInvalidMemoryCount:           "invalid_memory_count",
	CodeInvalidGlobalCount:           "invalid_global_count",
	CodeInvalidExportCount:           "invalid_export_count",
	CodeInvalidElementCount:          "invalid_element_count",
	CodeInvalidCodeCount:             "invalid_code_count",
	CodeInvalidDataCount:             "invalid_data_count",
	CodeInvalidTagCount:              "invalid_tag_count",
	CodeSizeExceedsPlatformLimit:     "size_exceeds_platform_limit",
	CodeImportDefinedCountOverflow:   "import_defined_count_overflow",
	CodeResolvedCountExceedsDeclared: "resolved_count_exceeds_declared",
	CodeResolvedCountMismatch:        "resolved_count_mismatch",
	CodeTerminatorNotFound:           "terminator_not_found",
	CodeInvalidConstOpcode:           "invalid_const_opcode",
	CodeInvalidFuncTypeForm:          "invalid_func_type_form",
	CodeInvalidValueType:             "invalid_value_type",
	CodeTooManyResults:               "too_many_results",
	CodeInvalidExternKind:            "invalid_extern_kind",
	CodeInvalidMutability:            "invalid_mutability",
	CodeMutableGlobalDisabled:        "mutable_global_disabled",
	CodeInvalidLimitsFlags:           "invalid_limits_flags",
	CodeLimitsMinExceedsMax:          "limits_min_exceeds_max",
	CodeMemoryPagesExceedLimit:       "memory_pages_exceed_limit",
	CodeInvalidPageSize:              "invalid_page_size",
	CodeMultipleTables:               "multiple_tables",
	CodeMultipleMemories:             "multiple_memories",
	CodeInvalidElementMode:           "invalid_element_mode",
	CodeInvalidElemKind:              "invalid_elem_kind",
	CodeInvalidDataMode:              "invalid_data_mode",
	CodeTooManyLocals:                "too_many_locals",
	CodeDuplicateExportName:          "duplicate_export_name",
	CodeInvalidTagAttribute:          "invalid_tag_attribute",
	CodeFunctionCodeCountMismatch:    "function_code_count_mismatch",
	CodeDataCountMismatch:            "data_count_mismatch",
	CodeIndexOutOfRange:              "index_out_of_range",
	CodeInvalidStartSignature:        "invalid_start_signature",
	CodeFeatureConflict:              "feature_conflict",
	CodeMissingSectionHandler:        "missing_section_handler",
	CodeMissingDependency:            "missing_dependency",
	CodeDuplicateFeature:             "duplicate_feature",
	CodeConstTypeMismatch:            "const_type_mismatch",
	CodeConstStackMismatch:           "const_stack_mismatch",
	CodeGlobalIndexOutOfRange:        "global_index_out_of_range",
	CodeEngineRejected:               "engine_rejected",
}

func (c Code) String() string {
	if int(c) < len(codeNames) && codeNames[c] != "" {
		return codeNames[c]
	}
	return "unknown"
}
