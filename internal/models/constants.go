package models

const (
	OutputBaseName  = "PlanilhaUP_"
	DefaultMaxRows  = 1000
	DefaultSheet    = "Sheet1"
	CountryCode     = "55"
	MobilePrefix    = "9"
	AreaCodeLength  = 2
	XLSXExtension   = ".xlsx"
	CSVExtension    = ".csv"
	XLSExtension    = ".xls"
	XLSMExtension   = ".xlsm"
	MsgInvalidMax   = "max rows must be a valid positive value"
	MsgReadFailure  = "error reading input file"
	MsgNoFile       = "please select a file to upload"
	MsgColumnAbsent = "contact column %q not found"
)

// AllowedExtensions are the upload types accepted by the web form.
var AllowedExtensions = []string{XLSExtension, XLSXExtension, CSVExtension}
