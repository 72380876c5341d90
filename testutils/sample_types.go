package testutils

import "github.com/securego/cfiverify/ir"

// CodeSample is a lifted function and how many violations should be reported
// when it is checked against SampleMetadata
type CodeSample struct {
	Function *ir.Function
	Errors   int
}
