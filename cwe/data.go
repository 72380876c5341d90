package cwe

var data = map[string]*Weakness{
	"20": {
		ID:          "20",
		Description: "The product receives input or data, but it does not validate or incorrectly validates that the input has the properties that are required to process the data safely and correctly.",
		Name:        "Improper Input Validation",
	},
	"129": {
		ID:          "129",
		Description: "The product uses untrusted input when calculating or using an array index, but the product does not validate or incorrectly validates the index to ensure the index references a valid position within the array.",
		Name:        "Improper Validation of Array Index",
	},
	"691": {
		ID:          "691",
		Description: "The code does not sufficiently manage its control flow during execution, creating conditions in which the control flow can be modified in unexpected ways.",
		Name:        "Insufficient Control Flow Management",
	},
	"822": {
		ID:          "822",
		Description: "The product obtains a value from an untrusted source, converts this value to a pointer, and dereferences the resulting pointer.",
		Name:        "Untrusted Pointer Dereference",
	},
}

// Get Retrieves a CWE weakness by it's id
func Get(id string) *Weakness {
	weakness, ok := data[id]
	if ok && weakness != nil {
		return weakness
	}
	return nil
}
