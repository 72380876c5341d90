package cfiverify

import (
	"sort"
)

// Error is used when a function could not be analyzed or checked
type Error struct {
	Function string `json:"function" yaml:"function"`
	Address  uint64 `json:"address" yaml:"address"`
	Err      string `json:"error" yaml:"error"`
}

// NewError creates Error object
func NewError(function string, address uint64, err string) *Error {
	return &Error{
		Function: function,
		Address:  address,
		Err:      err,
	}
}

// sortErrors sorts the integration errors by address
func sortErrors(allErrors map[string][]Error) {
	for _, errors := range allErrors {
		sort.Slice(errors, func(i, j int) bool {
			if errors[i].Address == errors[j].Address {
				return errors[i].Function < errors[j].Function
			}
			return errors[i].Address < errors[j].Address
		})
	}
}
